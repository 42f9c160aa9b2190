package models

import "time"

// PasswordReset stores a single-use password reset token. Only the SHA-256
// hash of the raw token is persisted; the raw value travels once in the
// reset email and is never stored.
type PasswordReset struct {
	TokenHash string `gorm:"type:text;primaryKey"` // SHA-256 hex of the raw token.

	UserID uint64     `gorm:"not null;index"`    // Owning admin user ID.
	User   *AdminUser `gorm:"foreignKey:UserID"` // Owning admin user.

	ExpiresAt time.Time  `gorm:"not null"` // Absolute expiry (60 minutes from request).
	UsedAt    *time.Time                   // Set exactly once on redemption.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName pins the legacy table name.
func (PasswordReset) TableName() string { return "admin_password_resets" }
