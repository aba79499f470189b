package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one persisted session: a single link in a rotation lineage.
// Rows are only ever marked revoked, never deleted, so that presentation of a
// rotated-out token can be recognized as reuse.
type RefreshToken struct {
	ID         uint       `gorm:"primarykey" json:"-"`
	JTI        uuid.UUID  `gorm:"column:jti;type:uuid;uniqueIndex;not null" json:"jti"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	IssuedAt   time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	Revoked    bool       `gorm:"not null;default:false" json:"revoked"`
	ReplacedBy *uuid.UUID `gorm:"type:uuid" json:"replaced_by,omitempty"`
	IP         string     `json:"ip,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	Label      string     `json:"label,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"-"`
	User       User       `gorm:"foreignKey:UserID" json:"-"`
}

// TableName overrides the table name
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Active reports whether the token can still be presented at the given time.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
