// Package wa adapts the WhatsApp multi-device client behind a small socket
// interface so the pairing workflow can be driven without the real network.
package wa

import "context"

// EventKind classifies socket events delivered to the workflow.
type EventKind int

const (
	// EventQR carries one QR payload in Event.Code.
	EventQR EventKind = iota
	// EventAuthenticated fires once the account accepts the link.
	EventAuthenticated
	// EventDisconnected is a recoverable connection loss.
	EventDisconnected
	// EventLoggedOut is terminal; the credentials are invalid.
	EventLoggedOut
)

func (k EventKind) String() string {
	switch k {
	case EventQR:
		return "qr"
	case EventAuthenticated:
		return "authenticated"
	case EventDisconnected:
		return "disconnected"
	case EventLoggedOut:
		return "logged_out"
	}
	return "unknown"
}

// Event is one translated socket event.
type Event struct {
	Kind EventKind
	Code string
}

// Socket is a live protocol connection bound to one credential directory.
type Socket interface {
	// Registered reports whether the credential store already holds a
	// paired device identity.
	Registered() bool
	Connect() error
	Disconnect()
	// Events returns the translated event stream for this socket.
	Events() <-chan Event
	// RequestPairingCode asks the server for a numeric pairing code for the
	// given phone number (digits only).
	RequestPairingCode(ctx context.Context, phone string) (string, error)
	// SendSelf sends a text message to the paired account's own chat.
	SendSelf(ctx context.Context, text string) error
	// SelfJID returns the paired account JID, empty before authentication.
	SelfJID() string
}

// Dialer opens sockets over a session credential directory.
type Dialer interface {
	Dial(ctx context.Context, credDir string) (Socket, error)
}
