package domain

import "time"

// Session lifecycle status values persisted in WaSession.Status.
const (
	SessionCreated       = "created"
	SessionConnecting    = "connecting"
	SessionIssued        = "issued"
	SessionAuthenticated = "authenticated"
	SessionArchiving     = "archiving"
	SessionNotifying     = "notifying"
	SessionDone          = "done"
	SessionFailed        = "failed"
)

// WaSession records one pairing attempt and its outcome.
type WaSession struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"uniqueIndex"`
	Phone     string    `json:"phone"`
	Mode      string    `json:"mode"` // qr or code
	Status    string    `json:"status"`
	Jid       string    `json:"jid"` // populated after pairing completes
	Locator   string    `json:"locator"`
	LastError string    `json:"last_error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WaSession) TableName() string {
	return "wa_session"
}
