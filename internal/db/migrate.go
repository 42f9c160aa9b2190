package db

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/models"
	"github.com/whatsnominated/backend/internal/security"
	"gorm.io/gorm"
)

// Migrate runs schema migrations and the legacy data repairs.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Year{},
		&models.Category{},
		&models.Film{},
		&models.FilmYear{},
		&models.Nomination{},
		&models.DefaultSeen{},
		&models.UserSeen{},
		&models.UserPick{},
		&models.CategoryWinner{},
		&models.WatchLink{},
		&models.WatchLabel{},
		&models.Banner{},
		&models.EventMode{},
		&models.VotingLock{},
		&models.ScrapedPoster{},
		&models.AdminPoster{},
		&models.ContactSubmission{},
		&models.AdminUser{},
		&models.AdminSession{},
		&models.PasswordReset{},
		&models.AuditLog{},
		&models.YearImportRun{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}

	if errBackfill := backfillSessionCSRF(conn); errBackfill != nil {
		return errBackfill
	}
	if errBackfill := backfillFilmExternalIDs(conn); errBackfill != nil {
		return errBackfill
	}
	log.WithField("dialect", DialectName(conn)).Debug("schema migrated")
	return nil
}

// backfillSessionCSRF repairs admin sessions created before CSRF tokens
// were enforced. Each empty csrf_token receives a fresh random value, so
// the lazy self-heal on read only ever covers rows written by other tools.
func backfillSessionCSRF(conn *gorm.DB) error {
	var tokens []string
	if errFind := conn.Model(&models.AdminSession{}).
		Where("csrf_token IS NULL OR TRIM(csrf_token) = ''").
		Pluck("token", &tokens).Error; errFind != nil {
		return fmt.Errorf("db: find sessions missing csrf: %w", errFind)
	}
	for _, token := range tokens {
		csrf, errGen := security.GenerateCSRFToken()
		if errGen != nil {
			return fmt.Errorf("db: backfill csrf: %w", errGen)
		}
		if errUpdate := conn.Model(&models.AdminSession{}).
			Where("token = ?", token).
			Update("csrf_token", csrf).Error; errUpdate != nil {
			return fmt.Errorf("db: backfill csrf: %w", errUpdate)
		}
	}
	return nil
}

// backfillFilmExternalIDs seeds external IDs for films imported before the
// column existed; the film's own slug doubles as the upstream identifier.
func backfillFilmExternalIDs(conn *gorm.DB) error {
	if errUpdate := conn.Model(&models.Film{}).
		Where("external_id IS NULL OR external_id = ''").
		Update("external_id", gorm.Expr("id")).Error; errUpdate != nil {
		return fmt.Errorf("db: backfill film external ids: %w", errUpdate)
	}
	return nil
}
