package pairing

import "time"

// Policy bounds every delay and retry in the workflow. The defaults mirror
// the production deployment; tests shrink them to microseconds.
type Policy struct {
	// SettleDelay is the pause after authentication before the first
	// credential snapshot attempt, giving key rotation time to flush.
	SettleDelay time.Duration
	// SnapshotAttempts/SnapshotDelay bound the credential bundle poll.
	SnapshotAttempts int
	SnapshotDelay    time.Duration
	// UploadAttempts/UploadDelay bound archive upload retries.
	UploadAttempts int
	UploadDelay    time.Duration
	// ReconnectAttempts/ReconnectDelay bound redials after a recoverable
	// disconnect before authentication.
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	// GraceDelay is the pause between the notification and the disconnect,
	// letting the message flush before the socket drops.
	GraceDelay time.Duration
	// IssueTimeout caps the wait from connect to authentication.
	IssueTimeout time.Duration
	// RetainOnDone keeps the credential directory after a successful
	// archive so the session can be re-established via Load.
	RetainOnDone bool
}

func DefaultPolicy() Policy {
	return Policy{
		SettleDelay:       5 * time.Second,
		SnapshotAttempts:  15,
		SnapshotDelay:     3 * time.Second,
		UploadAttempts:    4,
		UploadDelay:       3 * time.Second,
		ReconnectAttempts: 3,
		ReconnectDelay:    5 * time.Second,
		GraceDelay:        2 * time.Second,
		IssueTimeout:      90 * time.Second,
		RetainOnDone:      true,
	}
}
