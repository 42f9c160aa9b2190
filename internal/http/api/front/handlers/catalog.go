// Package handlers implements the public site API: catalog reads, user
// state, poster serving, contact form and where-to-watch redirects.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/models"
	"gorm.io/gorm"
)

// AllCategories is the sentinel meaning "no category filter".
const AllCategories = "__ALL__"

// DefaultBannerText shows when a year has no banner row or an empty one.
const DefaultBannerText = "MAKE YOUR PICKS BY SUNDAY, MARCH 15, 2026, 7PM PST - " +
	"VOTING CLOSES AT THE BEGINNING OF THE OSCARS BROADCAST"

const defaultYear = 2026

// yearParam reads the year query parameter with the current-season default.
func yearParam(c *gin.Context) int {
	raw := c.DefaultQuery("year", strconv.Itoa(defaultYear))
	year, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return defaultYear
	}
	return year
}

// CatalogHandler serves the year list and the nominees payload.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// Years returns all award years, newest first.
func (h *CatalogHandler) Years(c *gin.Context) {
	var years []models.Year
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("year DESC").Find(&years).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	out := make([]gin.H, 0, len(years))
	for _, y := range years {
		out = append(out, gin.H{"year": y.Year, "label": y.Label})
	}
	c.JSON(http.StatusOK, gin.H{"years": out})
}

// filmRow is the joined film projection behind the nominees payload.
type filmRow struct {
	ID               string
	Title            string
	OverrideURL      *string
	FreeToWatch      *bool
	ScrapedPosterURL *string
	AdminPosterURL   *string
}

// nominationRow is one nomination in category order.
type nominationRow struct {
	Category string `json:"category"`
	FilmID   string `json:"filmId"`
	Nominee  string `json:"nominee"`
}

// winnerRow pairs a category name with its winning film.
type winnerRow struct {
	Category string
	FilmID   string
}

const filmsAllSQL = `
SELECT f.id, f.title, wl.url AS override_url,
       wlbl.free_to_watch AS free_to_watch,
       sp.url AS scraped_poster_url, ap.url AS admin_poster_url
FROM film_years fy
JOIN films f ON f.id = fy.film_id
LEFT JOIN admin_watch_links wl ON wl.year = fy.year AND wl.film_id = fy.film_id
LEFT JOIN admin_watch_labels wlbl ON wlbl.year = fy.year AND wlbl.film_id = fy.film_id
LEFT JOIN scraped_posters sp ON sp.year = fy.year AND sp.film_id = fy.film_id
LEFT JOIN admin_posters ap ON ap.year = fy.year AND ap.film_id = fy.film_id
WHERE fy.year = ?
ORDER BY f.title`

const filmsByCategorySQL = `
SELECT DISTINCT f.id, f.title, wl.url AS override_url,
       wlbl.free_to_watch AS free_to_watch,
       sp.url AS scraped_poster_url, ap.url AS admin_poster_url
FROM nominations n
JOIN categories c ON c.id = n.category_id
JOIN films f ON f.id = n.film_id
JOIN film_years fy ON fy.year = n.year AND fy.film_id = n.film_id
LEFT JOIN admin_watch_links wl ON wl.year = fy.year AND wl.film_id = fy.film_id
LEFT JOIN admin_watch_labels wlbl ON wlbl.year = fy.year AND wlbl.film_id = fy.film_id
LEFT JOIN scraped_posters sp ON sp.year = fy.year AND sp.film_id = fy.film_id
LEFT JOIN admin_posters ap ON ap.year = fy.year AND ap.film_id = fy.film_id
WHERE n.year = ? AND c.name = ?
ORDER BY f.title`

// Nominees returns the full payload the picks page renders: categories,
// films with override and poster resolution, nominations, winners and the
// per-year presentation flags.
func (h *CatalogHandler) Nominees(c *gin.Context) {
	year := yearParam(c)
	category := c.DefaultQuery("category", AllCategories)
	ctx := c.Request.Context()
	conn := h.db.WithContext(ctx)

	var categories []models.Category
	if errFind := conn.Where("year = ?", year).Order("id").Find(&categories).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var films []filmRow
	var errFilms error
	if category == AllCategories {
		errFilms = conn.Raw(filmsAllSQL, year).Scan(&films).Error
	} else {
		errFilms = conn.Raw(filmsByCategorySQL, year, category).Scan(&films).Error
	}
	if errFilms != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var nominations []nominationRow
	if errFind := conn.Raw(`
SELECT c.name AS category, n.film_id AS film_id, n.nominee
FROM nominations n
JOIN categories c ON c.id = n.category_id
WHERE n.year = ?
ORDER BY n.id`, year).Scan(&nominations).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var winners []winnerRow
	if errFind := conn.Raw(`
SELECT c.name AS category, cw.film_id AS film_id
FROM category_winners cw
JOIN categories c ON c.id = cw.category_id
WHERE cw.year = ?`, year).Scan(&winners).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var banner models.Banner
	hasBanner := conn.Where("year = ?", year).First(&banner).Error == nil
	var eventMode models.EventMode
	hasEventMode := conn.Where("year = ?", year).First(&eventMode).Error == nil
	var votingLock models.VotingLock
	hasVotingLock := conn.Where("year = ?", year).First(&votingLock).Error == nil

	categoriesOut := make([]gin.H, 0, len(categories))
	for _, cat := range categories {
		categoriesOut = append(categoriesOut, gin.H{
			"name":        cat.Name,
			"yearStarted": cat.YearStarted,
			"yearEnded":   cat.YearEnded,
		})
	}

	filmsOut := make([]gin.H, 0, len(films))
	for _, film := range films {
		posterURL := film.AdminPosterURL
		if posterURL == nil || *posterURL == "" {
			posterURL = film.ScrapedPosterURL
		}
		filmsOut = append(filmsOut, gin.H{
			"id":                      film.ID,
			"title":                   film.Title,
			"whereToWatchUrl":         film.OverrideURL,
			"whereToWatchOverrideUrl": film.OverrideURL,
			"freeToWatch":             film.FreeToWatch != nil && *film.FreeToWatch,
			"posterUrl":               posterURL,
			"posterOverrideUrl":       film.AdminPosterURL,
		})
	}

	winnersByCategory := make(map[string]string, len(winners))
	for _, w := range winners {
		winnersByCategory[w.Category] = w.FilmID
	}

	bannerEnabled := true
	bannerText := DefaultBannerText
	if hasBanner {
		bannerEnabled = banner.Enabled
		if banner.Text != "" {
			bannerText = banner.Text
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"year":              year,
		"categories":        categoriesOut,
		"films":             filmsOut,
		"nominations":       nominations,
		"winnersByCategory": winnersByCategory,
		"eventMode":         hasEventMode && eventMode.Enabled,
		"votingLocked":      hasVotingLock && votingLock.Enabled,
		"banner": gin.H{
			"enabled": bannerEnabled,
			"text":    bannerText,
		},
	})
}
