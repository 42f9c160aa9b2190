// Package importer loads yearly nominee payloads from JSON files into
// the database. Imports are idempotent per payload hash and every run is
// recorded in year_import_runs.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run statuses written to year_import_runs.
const (
	StatusImported = "imported"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

var externalIDPattern = regexp.MustCompile(`^tt\d+$`)

// CategoryPayload is one category entry in a year payload.
type CategoryPayload struct {
	Name        string `json:"name"`
	YearStarted *int   `json:"yearStarted"`
	YearEnded   *int   `json:"yearEnded"`
}

// AvailabilityPayload carries the baseline watch providers per film.
type AvailabilityPayload struct {
	Free         string `json:"free"`
	Subscription string `json:"subscription"`
	Rent         string `json:"rent"`
	Theaters     string `json:"theaters"`
}

// FilmPayload is one film entry in a year payload.
type FilmPayload struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	ExternalID   string              `json:"externalId"`
	Availability AvailabilityPayload `json:"availability"`
}

// NominationPayload joins a film to a category by name.
type NominationPayload struct {
	Category string `json:"category"`
	FilmID   string `json:"filmId"`
	Nominee  string `json:"nominee"`
}

// YearPayload is the per-year import document.
type YearPayload struct {
	Year               int                 `json:"year"`
	Label              string              `json:"label"`
	Categories         []CategoryPayload   `json:"categories"`
	Films              []FilmPayload       `json:"films"`
	Nominations        []NominationPayload `json:"nominations"`
	DefaultSeenFilmIDs []string            `json:"defaultSeenFilmIds"`
}

// bundle is the multi-year container form of the document.
type bundle struct {
	SchemaVersion *int                       `json:"schemaVersion"`
	Years         map[string]json.RawMessage `json:"years"`
}

// Result summarizes one completed import.
type Result struct {
	Year    int
	Status  string
	Counts  map[string]int
	Details string
}

// Importer writes year payloads into the catalog tables.
type Importer struct {
	db *gorm.DB
}

// New builds an importer over the given connection.
func New(conn *gorm.DB) *Importer {
	return &Importer{db: conn}
}

// LoadPayload reads a JSON file holding either a single-year payload or a
// {"years": {...}} bundle. For bundles with more than one year the year
// argument selects which to load; 0 means "the only one".
func LoadPayload(path string, year int) (*YearPayload, *int, string, error) {
	raw, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, nil, "", fmt.Errorf("importer: read %s: %w", path, errRead)
	}
	sum := sha256.Sum256(raw)
	dataHash := hex.EncodeToString(sum[:])

	var doc bundle
	if errParse := json.Unmarshal(raw, &doc); errParse != nil {
		return nil, nil, dataHash, fmt.Errorf("importer: parse %s: %w", path, errParse)
	}

	var payloadRaw json.RawMessage
	if doc.Years != nil {
		switch {
		case year != 0:
			entry, ok := doc.Years[strconv.Itoa(year)]
			if !ok {
				return nil, doc.SchemaVersion, dataHash, fmt.Errorf("importer: year %d not found in %s", year, path)
			}
			payloadRaw = entry
		case len(doc.Years) == 1:
			for key, entry := range doc.Years {
				year, _ = strconv.Atoi(key)
				payloadRaw = entry
			}
		default:
			return nil, doc.SchemaVersion, dataHash, fmt.Errorf("importer: %s contains multiple years, pass one explicitly", path)
		}
	} else {
		payloadRaw = raw
	}

	var payload YearPayload
	if errParse := json.Unmarshal(payloadRaw, &payload); errParse != nil {
		return nil, doc.SchemaVersion, dataHash, fmt.Errorf("importer: parse year payload: %w", errParse)
	}
	if year != 0 {
		payload.Year = year
	}
	if payload.Year == 0 {
		return nil, doc.SchemaVersion, dataHash, fmt.Errorf("importer: payload has no year")
	}
	return &payload, doc.SchemaVersion, dataHash, nil
}

// Validate checks payload integrity and returns human-readable errors.
// Warnings do not block the import.
func Validate(payload *YearPayload) (errs, warnings []string) {
	if strings.TrimSpace(payload.Label) == "" {
		errs = append(errs, "missing required key: label")
	}
	if len(payload.Categories) == 0 {
		errs = append(errs, "missing required key: categories")
	}
	if len(payload.Films) == 0 {
		errs = append(errs, "missing required key: films")
	}

	categoryNames := make(map[string]bool, len(payload.Categories))
	for _, category := range payload.Categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			errs = append(errs, "all categories must have a non-empty name")
			continue
		}
		if categoryNames[name] {
			errs = append(errs, fmt.Sprintf("duplicate category name: %s", name))
		}
		categoryNames[name] = true
	}

	filmIDs := make(map[string]bool, len(payload.Films))
	externalIDs := make(map[string]bool)
	for _, film := range payload.Films {
		id := strings.TrimSpace(film.ID)
		if id == "" {
			errs = append(errs, "each film must have a non-empty id")
			continue
		}
		if filmIDs[id] {
			errs = append(errs, fmt.Sprintf("duplicate film id: %s", id))
		}
		filmIDs[id] = true
		if strings.TrimSpace(film.Title) == "" {
			errs = append(errs, fmt.Sprintf("film %s has empty title", id))
		}
		if external := strings.TrimSpace(film.ExternalID); external != "" {
			if externalIDs[external] {
				errs = append(errs, fmt.Sprintf("duplicate externalId: %s", external))
			}
			externalIDs[external] = true
			if !externalIDPattern.MatchString(external) {
				warnings = append(warnings, fmt.Sprintf("film %s externalId %q does not match tt1234567", id, external))
			}
		}
	}

	for _, nomination := range payload.Nominations {
		if !categoryNames[strings.TrimSpace(nomination.Category)] {
			errs = append(errs, fmt.Sprintf("nomination references unknown category: %s", nomination.Category))
		}
		if !filmIDs[strings.TrimSpace(nomination.FilmID)] {
			errs = append(errs, fmt.Sprintf("nomination references unknown filmId: %s", nomination.FilmID))
		}
	}
	for _, filmID := range payload.DefaultSeenFilmIDs {
		if !filmIDs[filmID] {
			errs = append(errs, fmt.Sprintf("defaultSeenFilmIds contains unknown filmId: %s", filmID))
		}
	}
	return errs, warnings
}

// ImportFile loads, validates and applies the payload at path. A payload
// whose hash matches the last imported run for the year is skipped.
func (imp *Importer) ImportFile(ctx context.Context, path string, year int, prune bool) (*Result, error) {
	payload, schemaVersion, dataHash, errLoad := LoadPayload(path, year)
	if errLoad != nil {
		if dataHash != "" {
			imp.recordRun(ctx, year, path, dataHash, schemaVersion, StatusFailed, errLoad.Error())
		}
		return nil, errLoad
	}

	errs, warnings := Validate(payload)
	if len(errs) > 0 {
		details := strings.Join(errs, "; ")
		imp.recordRun(ctx, payload.Year, path, dataHash, schemaVersion, StatusFailed, details)
		return nil, fmt.Errorf("importer: validation failed: %s", details)
	}
	for _, warning := range warnings {
		log.WithField("year", payload.Year).Warn("importer: " + warning)
	}

	var previous models.YearImportRun
	errFind := imp.db.WithContext(ctx).
		Where("year = ? AND data_hash = ? AND status = ?", payload.Year, dataHash, StatusImported).
		Order("id DESC").
		First(&previous).Error
	if errFind == nil {
		imp.recordRun(ctx, payload.Year, path, dataHash, schemaVersion, StatusSkipped, "identical payload already imported")
		return &Result{Year: payload.Year, Status: StatusSkipped, Counts: countsFor(payload)}, nil
	}

	errTx := imp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyPayload(tx, payload, prune)
	})
	if errTx != nil {
		imp.recordRun(ctx, payload.Year, path, dataHash, schemaVersion, StatusFailed, errTx.Error())
		return nil, fmt.Errorf("importer: apply year %d: %w", payload.Year, errTx)
	}

	imp.recordRun(ctx, payload.Year, path, dataHash, schemaVersion, StatusImported, "imported successfully")
	return &Result{Year: payload.Year, Status: StatusImported, Counts: countsFor(payload)}, nil
}

func countsFor(payload *YearPayload) map[string]int {
	return map[string]int{
		"categories":         len(payload.Categories),
		"films":              len(payload.Films),
		"nominations":        len(payload.Nominations),
		"defaultSeenFilmIds": len(payload.DefaultSeenFilmIDs),
	}
}

func (imp *Importer) recordRun(ctx context.Context, year int, path, dataHash string, schemaVersion *int, status, details string) {
	payload, _ := json.Marshal(map[string]string{"details": details})
	run := models.YearImportRun{
		Year:          year,
		SourcePath:    path,
		DataHash:      dataHash,
		SchemaVersion: schemaVersion,
		Status:        status,
		Details:       datatypes.JSON(payload),
	}
	if errCreate := imp.db.WithContext(ctx).Create(&run).Error; errCreate != nil {
		log.WithError(errCreate).Warn("importer: record import run")
	}
}

// resolveCanonicalFilmID maps a source film id onto the canonical row:
// an existing film with the same externalId wins, then a title match
// adopts the externalId, then the externalId itself becomes the id.
func resolveCanonicalFilmID(tx *gorm.DB, sourceID, title, externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return sourceID, nil
	}

	var film models.Film
	errFind := tx.Where("external_id = ?", externalID).First(&film).Error
	if errFind == nil {
		return film.ID, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return "", errFind
	}

	errFind = tx.Where("title = ?", title).First(&film).Error
	if errFind == nil {
		errUpdate := tx.Model(&models.Film{}).
			Where("id = ? AND (external_id IS NULL OR external_id = '' OR external_id = ?)", film.ID, film.ID).
			Update("external_id", externalID).Error
		if errUpdate != nil {
			return "", errUpdate
		}
		return film.ID, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return "", errFind
	}
	return externalID, nil
}

func applyPayload(tx *gorm.DB, payload *YearPayload, prune bool) error {
	yearRow := models.Year{Year: payload.Year, Label: payload.Label}
	if errSave := tx.Save(&yearRow).Error; errSave != nil {
		return errSave
	}

	categoryIDByName := make(map[string]uint64, len(payload.Categories))
	importedCategories := make([]string, 0, len(payload.Categories))
	for _, entry := range payload.Categories {
		name := strings.TrimSpace(entry.Name)
		importedCategories = append(importedCategories, name)

		var category models.Category
		errFind := tx.Where("year = ? AND name = ?", payload.Year, name).First(&category).Error
		switch {
		case errFind == nil:
			category.YearStarted = entry.YearStarted
			category.YearEnded = entry.YearEnded
			if errSave := tx.Save(&category).Error; errSave != nil {
				return errSave
			}
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			category = models.Category{
				Year:        payload.Year,
				Name:        name,
				YearStarted: entry.YearStarted,
				YearEnded:   entry.YearEnded,
			}
			if errCreate := tx.Create(&category).Error; errCreate != nil {
				return errCreate
			}
		default:
			return errFind
		}
		categoryIDByName[name] = category.ID
	}

	sourceToCanonical := make(map[string]string, len(payload.Films))
	importedFilmIDs := make([]string, 0, len(payload.Films))
	for _, entry := range payload.Films {
		canonicalID, errResolve := resolveCanonicalFilmID(tx, entry.ID, entry.Title, entry.ExternalID)
		if errResolve != nil {
			return errResolve
		}
		sourceToCanonical[entry.ID] = canonicalID
		importedFilmIDs = append(importedFilmIDs, canonicalID)

		externalID := strings.TrimSpace(entry.ExternalID)
		if externalID == "" {
			externalID = canonicalID
		}
		var film models.Film
		errFind := tx.Where("id = ?", canonicalID).First(&film).Error
		switch {
		case errFind == nil:
			film.Title = entry.Title
			if strings.TrimSpace(film.ExternalID) == "" {
				film.ExternalID = externalID
			}
			if errSave := tx.Save(&film).Error; errSave != nil {
				return errSave
			}
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			film = models.Film{ID: canonicalID, Title: entry.Title, ExternalID: externalID}
			if errCreate := tx.Create(&film).Error; errCreate != nil {
				return errCreate
			}
		default:
			return errFind
		}

		filmYear := models.FilmYear{
			Year:             payload.Year,
			FilmID:           canonicalID,
			BaseFree:         entry.Availability.Free,
			BaseSubscription: entry.Availability.Subscription,
			BaseRent:         entry.Availability.Rent,
			BaseTheaters:     entry.Availability.Theaters,
		}
		if errSave := tx.Save(&filmYear).Error; errSave != nil {
			return errSave
		}
	}

	// Nominations and default-seen rows are replaced wholesale per year.
	if errDel := tx.Where("year = ?", payload.Year).Delete(&models.Nomination{}).Error; errDel != nil {
		return errDel
	}
	for _, entry := range payload.Nominations {
		nomination := models.Nomination{
			Year:       payload.Year,
			CategoryID: categoryIDByName[strings.TrimSpace(entry.Category)],
			FilmID:     sourceToCanonical[strings.TrimSpace(entry.FilmID)],
			Nominee:    entry.Nominee,
		}
		if errCreate := tx.Create(&nomination).Error; errCreate != nil {
			return errCreate
		}
	}

	if errDel := tx.Where("year = ?", payload.Year).Delete(&models.DefaultSeen{}).Error; errDel != nil {
		return errDel
	}
	for _, sourceID := range payload.DefaultSeenFilmIDs {
		row := models.DefaultSeen{Year: payload.Year, FilmID: sourceToCanonical[sourceID]}
		if errCreate := tx.Create(&row).Error; errCreate != nil {
			return errCreate
		}
	}

	if prune {
		if errDel := tx.Where("year = ? AND film_id NOT IN ?", payload.Year, importedFilmIDs).
			Delete(&models.FilmYear{}).Error; errDel != nil {
			return errDel
		}
		if errDel := tx.Where("year = ? AND name NOT IN ?", payload.Year, importedCategories).
			Delete(&models.Category{}).Error; errDel != nil {
			return errDel
		}
	}
	return nil
}
