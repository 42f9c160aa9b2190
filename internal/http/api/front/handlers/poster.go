package handlers

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/models"
	"github.com/whatsnominated/backend/internal/posters"
	"gorm.io/gorm"
)

// PosterHandler serves film poster images: admin override URL first, then
// the disk cache, then the scraped source URL.
type PosterHandler struct {
	db    *gorm.DB
	cache *posters.Cache
}

// NewPosterHandler constructs a PosterHandler.
func NewPosterHandler(db *gorm.DB, cache *posters.Cache) *PosterHandler {
	return &PosterHandler{db: db, cache: cache}
}

func httpURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, errParse := url.Parse(raw)
	if errParse != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ""
	}
	return raw
}

// Image resolves the poster for one film. The admin override wins
// immediately so a stale cache entry can never mask it.
func (h *PosterHandler) Image(c *gin.Context) {
	year := yearParam(c)
	filmID := c.Query("filmId")
	if filmID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "filmId is required"})
		return
	}
	if !posters.ValidFilmID(filmID) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid filmId"})
		return
	}
	conn := h.db.WithContext(c.Request.Context())

	var adminPoster models.AdminPoster
	if conn.Where("year = ? AND film_id = ?", year, filmID).First(&adminPoster).Error == nil {
		if target := httpURL(adminPoster.URL); target != "" {
			c.Redirect(http.StatusTemporaryRedirect, target)
			return
		}
	}

	cachePath := h.cache.Path(year, filmID)
	if _, errStat := os.Stat(cachePath); errStat == nil {
		c.Header("Cache-Control", "public, max-age=86400")
		c.File(cachePath)
		return
	}

	var scraped models.ScrapedPoster
	if conn.Where("year = ? AND film_id = ?", year, filmID).First(&scraped).Error == nil {
		if target := httpURL(scraped.URL); target != "" {
			c.Redirect(http.StatusTemporaryRedirect, target)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "poster not found"})
}
