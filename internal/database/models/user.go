package models

import (
	"time"

	"gorm.io/gorm"
)

// Reserved identities seeded by migration. Real accounts are created with
// ids above ReservedIDCeiling so deployment-mode pseudo-users never collide
// with registered users.
const (
	AnonymousUserID   uint = 1
	LegacyUserID      uint = 2
	ReservedIDCeiling uint = 100
)

// User represents the user domain entity
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	Email        *string        `gorm:"uniqueIndex" json:"email,omitempty"`
	FullName     string         `json:"full_name,omitempty"`
	Bio          string         `json:"bio,omitempty"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	IsVerified   bool           `gorm:"not null;default:false" json:"is_verified"`
	IsSuperuser  bool           `gorm:"not null;default:false" json:"is_superuser"`
	LastLogin    *time.Time     `json:"last_login,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// IsReserved reports whether the user is one of the seeded pseudo-identities
// (anonymous mode, legacy shared-code mode).
func (u *User) IsReserved() bool {
	return u.ID <= ReservedIDCeiling
}
