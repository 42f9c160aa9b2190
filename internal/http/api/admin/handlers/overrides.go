package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/audit"
	internalhttp "github.com/whatsnominated/backend/internal/http"
	"github.com/whatsnominated/backend/internal/models"
	"github.com/whatsnominated/backend/internal/posters"
	"gorm.io/gorm"
)

// OverrideHandler serves the per-year admin overrides: banner, event
// mode, voting lock, winners, poster and where-to-watch links.
type OverrideHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
	cookie   internalhttp.CookieConfig
	posters  *posters.Cache
}

// NewOverrideHandler constructs an OverrideHandler.
func NewOverrideHandler(db *gorm.DB, recorder *audit.Recorder, cookie internalhttp.CookieConfig, posterCache *posters.Cache) *OverrideHandler {
	return &OverrideHandler{db: db, recorder: recorder, cookie: cookie, posters: posterCache}
}

// record audits one override mutation with the acting admin attached.
func (h *OverrideHandler) record(c *gin.Context, action string, success bool, details map[string]any) {
	meta := internalhttp.ClientMeta(c, h.cookie.TrustProxy)
	entry := audit.Entry{
		Action:    action,
		Success:   success,
		RequestIP: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   details,
	}
	if identity := internalhttp.IdentityFromContext(c); identity != nil {
		entry.AdminUserID = &identity.UserID
		entry.ActorEmail = identity.Email
	}
	h.recorder.Record(c.Request.Context(), entry)
}

// bannerRequest defines the banner override body.
type bannerRequest struct {
	Year    int    `json:"year"`
	Enabled bool   `json:"enabled"`
	Text    string `json:"text"`
}

// PutBanner upserts the announcement banner for a year.
func (h *OverrideHandler) PutBanner(c *gin.Context) {
	var body bannerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	text := strings.TrimSpace(body.Text)

	banner := models.Banner{Year: body.Year, Enabled: body.Enabled, Text: text}
	if errSave := h.db.WithContext(c.Request.Context()).Save(&banner).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	h.record(c, "admin_banner_update", true, map[string]any{
		"year": body.Year, "enabled": body.Enabled, "textLength": len(text),
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// toggleRequest is the shared body for the enabled-flag overrides.
type toggleRequest struct {
	Year    int  `json:"year"`
	Enabled bool `json:"enabled"`
}

// PutEventMode upserts the live-event presentation flag for a year.
func (h *OverrideHandler) PutEventMode(c *gin.Context) {
	var body toggleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	mode := models.EventMode{Year: body.Year, Enabled: body.Enabled}
	if errSave := h.db.WithContext(c.Request.Context()).Save(&mode).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	h.record(c, "admin_event_mode_update", true, map[string]any{
		"year": body.Year, "enabled": body.Enabled,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PutVotingLock upserts the voting lock for a year.
func (h *OverrideHandler) PutVotingLock(c *gin.Context) {
	var body toggleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	lock := models.VotingLock{Year: body.Year, Enabled: body.Enabled}
	if errSave := h.db.WithContext(c.Request.Context()).Save(&lock).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	h.record(c, "admin_voting_lock_update", true, map[string]any{
		"year": body.Year, "enabled": body.Enabled,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// winnerRequest defines the winner override body.
type winnerRequest struct {
	Year     int    `json:"year"`
	Category string `json:"category"`
	FilmID   string `json:"filmId"`
	Winner   bool   `json:"winner"`
}

// PutWinner sets or clears the announced winner of a category.
func (h *OverrideHandler) PutWinner(c *gin.Context) {
	var body winnerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	ctx := c.Request.Context()

	var category models.Category
	errFind := h.db.WithContext(ctx).
		Where("year = ? AND name = ?", body.Year, body.Category).
		First(&category).Error
	if errFind != nil {
		h.record(c, "admin_winner_update", false, map[string]any{
			"year": body.Year, "category": body.Category, "filmId": body.FilmID, "reason": "unknown_category",
		})
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Unknown category"})
		return
	}

	if body.Winner {
		winner := models.CategoryWinner{Year: body.Year, CategoryID: category.ID, FilmID: body.FilmID}
		if errSave := h.db.WithContext(ctx).Save(&winner).Error; errSave != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
	} else {
		if errDel := h.db.WithContext(ctx).
			Where("year = ? AND category_id = ? AND film_id = ?", body.Year, category.ID, body.FilmID).
			Delete(&models.CategoryWinner{}).Error; errDel != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
	}
	h.record(c, "admin_winner_update", true, map[string]any{
		"year": body.Year, "category": body.Category, "filmId": body.FilmID, "winner": body.Winner,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// posterRequest defines the poster override body.
type posterRequest struct {
	Year   int    `json:"year"`
	FilmID string `json:"filmId"`
	URL    string `json:"url"`
}

// PutPoster sets or clears a poster override. A set URL is re-downloaded
// into the disk cache; a cleared one evicts it.
func (h *OverrideHandler) PutPoster(c *gin.Context) {
	var body posterRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	posterURL := strings.TrimSpace(body.URL)

	if posterURL != "" {
		poster := models.AdminPoster{Year: body.Year, FilmID: body.FilmID, URL: posterURL}
		if errSave := h.db.WithContext(ctx).Save(&poster).Error; errSave != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
		if errFetch := h.posters.Fetch(body.Year, body.FilmID, posterURL); errFetch != nil {
			log.WithError(errFetch).WithField("filmId", body.FilmID).Warn("poster cache refresh failed")
		}
	} else {
		if errDel := h.db.WithContext(ctx).
			Where("year = ? AND film_id = ?", body.Year, body.FilmID).
			Delete(&models.AdminPoster{}).Error; errDel != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
		h.posters.Remove(body.Year, body.FilmID)
	}
	h.record(c, "admin_poster_update", true, map[string]any{
		"year": body.Year, "filmId": body.FilmID, "hasUrl": posterURL != "",
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// watchLinkRequest defines the where-to-watch override body. FreeToWatch
// is a pointer so "absent" and "false" can be told apart.
type watchLinkRequest struct {
	Year        int    `json:"year"`
	FilmID      string `json:"filmId"`
	URL         string `json:"url"`
	FreeToWatch *bool  `json:"freeToWatch"`
}

// PutWatchLink sets or clears the where-to-watch URL override and the
// free-to-watch label for a film.
func (h *OverrideHandler) PutWatchLink(c *gin.Context) {
	var body watchLinkRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	linkURL := strings.TrimSpace(body.URL)
	if linkURL != "" {
		if parsed, errParse := url.Parse(linkURL); errParse != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "URL must be http or https"})
			return
		}
	}

	if linkURL != "" {
		link := models.WatchLink{Year: body.Year, FilmID: body.FilmID, URL: linkURL}
		if errSave := h.db.WithContext(ctx).Save(&link).Error; errSave != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
	} else {
		if errDel := h.db.WithContext(ctx).
			Where("year = ? AND film_id = ?", body.Year, body.FilmID).
			Delete(&models.WatchLink{}).Error; errDel != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
	}

	freeToWatch := false
	if body.FreeToWatch != nil {
		freeToWatch = *body.FreeToWatch
		if freeToWatch {
			label := models.WatchLabel{Year: body.Year, FilmID: body.FilmID, FreeToWatch: true}
			if errSave := h.db.WithContext(ctx).Save(&label).Error; errSave != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
				return
			}
		} else {
			if errDel := h.db.WithContext(ctx).
				Where("year = ? AND film_id = ?", body.Year, body.FilmID).
				Delete(&models.WatchLabel{}).Error; errDel != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
				return
			}
		}
	}

	h.record(c, "admin_where_to_watch_update", true, map[string]any{
		"year": body.Year, "filmId": body.FilmID, "hasUrl": linkURL != "", "freeToWatch": freeToWatch,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
