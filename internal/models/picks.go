package models

import "time"

// UserSeen records whether an anonymous user key has seen a film.
type UserSeen struct {
	UserKey string `gorm:"type:text;primaryKey"` // Anonymous user key.
	Year    int    `gorm:"primaryKey"`           // Awards year.
	FilmID  string `gorm:"type:text;primaryKey"` // Film slug.

	Seen bool `gorm:"not null"` // Seen flag.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName pins the legacy table name.
func (UserSeen) TableName() string { return "user_seen" }

// UserPick is one user's winner prediction for a category.
type UserPick struct {
	UserKey    string `gorm:"type:text;primaryKey"` // Anonymous user key.
	Year       int    `gorm:"primaryKey"`           // Awards year.
	CategoryID uint64 `gorm:"primaryKey"`           // Picked category.

	FilmID string `gorm:"type:text;not null"` // Picked film.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CategoryWinner is the announced winner for a category.
type CategoryWinner struct {
	Year       int    `gorm:"primaryKey"` // Awards year.
	CategoryID uint64 `gorm:"primaryKey"` // Winning category.

	FilmID string `gorm:"type:text;not null"` // Winning film.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
