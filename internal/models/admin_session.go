package models

import "time"

// AdminSession is an opaque bearer session owned by one admin user.
// The token itself is the primary key; expiry is absolute and checked at
// lookup time, never by a background sweep.
type AdminSession struct {
	Token string `gorm:"type:text;primaryKey"` // Opaque session token.

	UserID uint64     `gorm:"not null;index"`     // Owning admin user ID.
	User   *AdminUser `gorm:"foreignKey:UserID"`  // Owning admin user.

	CSRFToken string    `gorm:"type:text;not null;default:''"` // Per-session CSRF secret.
	ExpiresAt time.Time `gorm:"not null"`                      // Absolute expiry.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName pins the legacy table name.
func (AdminSession) TableName() string { return "admin_sessions" }
