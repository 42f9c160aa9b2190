package models

import "time"

// WatchLink is an admin-curated where-to-watch URL override for a film.
type WatchLink struct {
	Year   int    `gorm:"primaryKey"`           // Awards year.
	FilmID string `gorm:"type:text;primaryKey"` // Film slug.

	URL string `gorm:"type:text;not null"` // Override URL.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName pins the legacy table name.
func (WatchLink) TableName() string { return "admin_watch_links" }

// WatchLabel marks a film as free to watch for a year.
type WatchLabel struct {
	Year   int    `gorm:"primaryKey"`           // Awards year.
	FilmID string `gorm:"type:text;primaryKey"` // Film slug.

	FreeToWatch bool `gorm:"not null;default:false"` // Free-to-watch flag.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName pins the legacy table name.
func (WatchLabel) TableName() string { return "admin_watch_labels" }

// Banner is the per-year announcement banner.
type Banner struct {
	Year int `gorm:"primaryKey"` // Awards year.

	Enabled bool   `gorm:"not null;default:true"`         // Visibility flag.
	Text    string `gorm:"type:text;not null;default:''"` // Banner text; empty falls back to the default.
}

// TableName pins the legacy table name.
func (Banner) TableName() string { return "admin_banners" }

// EventMode toggles live-broadcast presentation for a year.
type EventMode struct {
	Year    int  `gorm:"primaryKey"`             // Awards year.
	Enabled bool `gorm:"not null;default:false"` // Event mode flag.
}

// TableName pins the legacy table name.
func (EventMode) TableName() string { return "admin_event_modes" }

// VotingLock freezes user picks for a year once voting closes.
type VotingLock struct {
	Year    int  `gorm:"primaryKey"`             // Awards year.
	Enabled bool `gorm:"not null;default:false"` // Lock flag.
}

// TableName pins the legacy table name.
func (VotingLock) TableName() string { return "admin_voting_locks" }

// ScrapedPoster is a poster URL found by the scraping tooling.
type ScrapedPoster struct {
	Year   int    `gorm:"primaryKey"`           // Awards year.
	FilmID string `gorm:"type:text;primaryKey"` // Film slug.

	URL    string `gorm:"type:text;not null"`                         // Poster URL.
	Source string `gorm:"type:text;not null;default:'google_images'"` // Scrape source.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// AdminPoster is an admin-curated poster URL override.
type AdminPoster struct {
	Year   int    `gorm:"primaryKey"`           // Awards year.
	FilmID string `gorm:"type:text;primaryKey"` // Film slug.

	URL string `gorm:"type:text;not null"` // Override URL.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
