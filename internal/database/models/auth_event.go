package models

import (
	"time"

	"github.com/google/uuid"
)

// Auth event types. The set is closed: consumers filter on these values.
const (
	EventLoginSuccess     = "login_success"
	EventLoginFailure     = "login_failure"
	EventLockoutTriggered = "lockout_triggered"
	EventLogout           = "logout"
	EventTokenRefresh     = "token_refresh"
	EventTokenReuse       = "token_reuse_detected"
	EventPasswordChanged  = "password_changed"
	EventSessionRevoked   = "session_revoked"
)

// AuthEvent is one row of the append-only audit trail. UserID is nil for
// attempts against unknown usernames.
type AuthEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	EventType string    `gorm:"not null;index" json:"event_type"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name
func (AuthEvent) TableName() string {
	return "auth_events"
}
