package models

import "time"

// ContactSubmission persists a contact-form message along with the outcome
// of the best-effort email delivery.
type ContactSubmission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name    string `gorm:"type:text;not null"`   // Sender name.
	Email   string `gorm:"type:text;not null"`   // Sender email.
	Topic   string `gorm:"type:text;default:''"` // Optional topic.
	Message string `gorm:"type:text;not null"`   // Message body.

	Sent      bool   `gorm:"not null;default:false"`        // Whether SMTP delivery succeeded.
	SendError string `gorm:"type:text;not null;default:''"` // Delivery error text, if any.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
