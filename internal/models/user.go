package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account record. OTP state lives on the row so a single
// row-level lock covers every code transition.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PhoneNumber  string    `gorm:"size:10;uniqueIndex" json:"phone_number"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`

	IsActive    bool `json:"is_active"`
	IsStaff     bool `json:"is_staff"`
	IsSuperuser bool `json:"is_superuser"`

	// OTPCode holds the current SMS code or the opaque email-verification
	// token; empty when no code is outstanding.
	OTPCode              string     `json:"-"`
	OTPExpiry            *time.Time `json:"-"`
	OTPAttemptsRemaining int        `json:"-"`
	OTPLockedUntil       *time.Time `json:"-"`

	RegisteredAt time.Time `gorm:"autoCreateTime" json:"registered_at"`
}

// BeforeCreate ensures UUIDs are generated for new records.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
