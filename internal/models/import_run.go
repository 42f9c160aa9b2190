package models

import (
	"time"

	"gorm.io/datatypes"
)

// YearImportRun records one execution of the year import tooling. The data
// hash lets repeated imports of identical source files short-circuit.
type YearImportRun struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Year       int    `gorm:"not null;index"`     // Imported awards year.
	SourcePath string `gorm:"type:text;not null"` // Source file path.
	DataHash   string `gorm:"type:text;not null"` // SHA-256 of the source payload.

	SchemaVersion *int           ``                     // Declared source schema version.
	Status        string         `gorm:"type:text;not null"` // imported | skipped | failed.
	Details       datatypes.JSON `gorm:"type:jsonb"`         // Structured run details.

	ImportedAt time.Time `gorm:"not null;autoCreateTime"` // Run timestamp.
}
