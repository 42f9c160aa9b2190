package models

import "time"

// AdminUser represents an administrator account stored in the database.
// Emails are normalized to lower case before insert so the unique index
// doubles as a case-insensitive constraint.
type AdminUser struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email        string `gorm:"type:text;not null;uniqueIndex"` // Unique lower-cased login email.
	PasswordHash string `gorm:"type:text;not null"`             // Encoded password hash.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
