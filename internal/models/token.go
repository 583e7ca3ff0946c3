package models

import "time"

// RevokedToken is a denylist entry for a logged-out or rotated JWT.
// Rows become dead weight once ExpiresAt passes and can be purged.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey" json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
	RevokedAt time.Time `gorm:"autoCreateTime" json:"revoked_at"`
}
