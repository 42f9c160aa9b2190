package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/audit"
	internalhttp "github.com/whatsnominated/backend/internal/http"
	"github.com/whatsnominated/backend/internal/models"
	"gorm.io/gorm"
)

const defaultYear = 2026

// DashboardHandler serves the admin participation summary.
type DashboardHandler struct {
	db       *gorm.DB       // Database handle for pick analytics.
	recorder *audit.Recorder
	cookie   internalhttp.CookieConfig
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(db *gorm.DB, recorder *audit.Recorder, cookie internalhttp.CookieConfig) *DashboardHandler {
	return &DashboardHandler{db: db, recorder: recorder, cookie: cookie}
}

// yearParam reads the ?year query with the default season fallback.
func yearParam(c *gin.Context) int {
	year, errParse := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(defaultYear)))
	if errParse != nil {
		return defaultYear
	}
	return year
}

// Summary returns participation counts for a year. Viewing the dashboard
// is itself an audited action.
func (h *DashboardHandler) Summary(c *gin.Context) {
	year := yearParam(c)
	ctx := c.Request.Context()

	var uniqueUsers, totalPicks, winnerCategories, usersCompared int64
	errUnique := h.db.WithContext(ctx).Model(&models.UserPick{}).
		Where("year = ?", year).
		Distinct("user_key").
		Count(&uniqueUsers).Error
	errPicks := h.db.WithContext(ctx).Model(&models.UserPick{}).
		Where("year = ?", year).
		Count(&totalPicks).Error
	errWinners := h.db.WithContext(ctx).Model(&models.CategoryWinner{}).
		Where("year = ?", year).
		Count(&winnerCategories).Error
	errCompared := h.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM (
			SELECT up.user_key
			FROM user_picks up
			JOIN category_winners cw
			  ON cw.year = up.year AND cw.category_id = up.category_id
			WHERE up.year = ?
			GROUP BY up.user_key
		) scored`, year).
		Scan(&usersCompared).Error
	for _, errQuery := range []error{errUnique, errPicks, errWinners, errCompared} {
		if errQuery != nil {
			log.WithError(errQuery).WithField("year", year).Error("dashboard summary query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
	}

	identity := internalhttp.IdentityFromContext(c)
	meta := internalhttp.ClientMeta(c, h.cookie.TrustProxy)
	entry := audit.Entry{
		Action:    "admin_dashboard_view",
		Success:   true,
		RequestIP: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   map[string]any{"year": year},
	}
	if identity != nil {
		entry.AdminUserID = &identity.UserID
		entry.ActorEmail = identity.Email
	}
	h.recorder.Record(ctx, entry)

	c.JSON(http.StatusOK, gin.H{
		"year":             year,
		"uniqueUsers":      uniqueUsers,
		"usersCompared":    usersCompared,
		"totalPicks":       totalPicks,
		"winnerCategories": winnerCategories,
	})
}
