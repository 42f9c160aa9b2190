package models

// Year is one awards year shown on the site.
type Year struct {
	Year  int    `gorm:"primaryKey"`         // Awards year, e.g. 2026.
	Label string `gorm:"type:text;not null"` // Display label.
}

// Category is an award category within a year.
type Category struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Year int    `gorm:"not null;uniqueIndex:idx_categories_year_name"`           // Owning year.
	Name string `gorm:"type:text;not null;uniqueIndex:idx_categories_year_name"` // Category name.

	YearStarted *int `` // First year the category was awarded.
	YearEnded   *int `` // Last year the category was awarded, if retired.
}

// Film is a nominated film. The ID is a stable slug; ExternalID tracks the
// upstream identifier used by import tooling.
type Film struct {
	ID         string `gorm:"type:text;primaryKey"` // Stable film slug.
	Title      string `gorm:"type:text;not null"`   // Display title.
	ExternalID string `gorm:"type:text;index"`      // Upstream import identifier.
}

// FilmYear links a film to a year with its baseline availability labels.
type FilmYear struct {
	Year   int    `gorm:"primaryKey"`           // Awards year.
	FilmID string `gorm:"type:text;primaryKey"` // Film slug.

	BaseFree         string `gorm:"type:text;not null;default:''"` // Baseline free providers.
	BaseSubscription string `gorm:"type:text;not null;default:''"` // Baseline subscription providers.
	BaseRent         string `gorm:"type:text;not null;default:''"` // Baseline rental providers.
	BaseTheaters     string `gorm:"type:text;not null;default:''"` // Baseline theater listing.
}

// Nomination joins a film to a category with an optional nominee credit.
type Nomination struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Year       int    `gorm:"not null;index"`       // Awards year.
	CategoryID uint64 `gorm:"not null;index"`       // Nominated category.
	FilmID     string `gorm:"type:text;not null"`   // Nominated film.
	Nominee    string `gorm:"type:text;default:''"` // Person credit, when applicable.
}

// DefaultSeen marks films pre-checked as seen for fresh visitors.
type DefaultSeen struct {
	Year   int    `gorm:"primaryKey"`           // Awards year.
	FilmID string `gorm:"type:text;primaryKey"` // Film slug.
}

// TableName pins the legacy table name.
func (DefaultSeen) TableName() string { return "default_seen" }
