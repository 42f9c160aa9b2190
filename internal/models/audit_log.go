package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is an append-only record of a security-relevant action. Rows are
// never updated; they are only pruned by retention age.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AdminUserID *uint64    `gorm:"index"`                  // Acting admin, when authenticated.
	AdminUser   *AdminUser `gorm:"foreignKey:AdminUserID"` // Acting admin user.

	Action  string `gorm:"type:text;not null;index"` // Action name, e.g. admin_login.
	Success bool   `gorm:"not null;default:true"`    // Outcome flag.

	ActorEmail string `gorm:"type:text;not null;default:''"` // Best-effort actor email.
	RequestIP  string `gorm:"type:text;not null;default:''"` // Request origin address.
	UserAgent  string `gorm:"type:text;not null;default:''"` // Request user agent.

	Details datatypes.JSON `gorm:"type:jsonb"` // Structured detail payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// TableName pins the legacy table name.
func (AuditLog) TableName() string { return "admin_audit_logs" }
