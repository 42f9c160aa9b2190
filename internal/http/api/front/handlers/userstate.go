package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/models"
	"gorm.io/gorm"
)

// DefaultUserKey identifies browsers that have not minted their own key.
const DefaultUserKey = "local-default-user"

// UserStateHandler serves per-user seen flags, picks and the performance
// block computed against announced winners.
type UserStateHandler struct {
	db *gorm.DB
}

// NewUserStateHandler constructs a UserStateHandler.
func NewUserStateHandler(db *gorm.DB) *UserStateHandler {
	return &UserStateHandler{db: db}
}

// pickRow pairs a category name with the picked film.
type pickRow struct {
	Category string
	FilmID   string
}

// otherScores aggregates every other user's correct-pick count relative
// to the current user's score.
type otherScores struct {
	Beaten      int64
	TotalOthers int64
}

// rankScores positions the current user among all users with scored picks.
type rankScores struct {
	RankPosition    int64
	RankedUserCount int64
	TiedUserCount   int64
}

const otherScoresSQL = `
WITH winner_categories AS (
  SELECT category_id, film_id
  FROM category_winners
  WHERE year = ?
),
user_scores AS (
  SELECT
    up.user_key AS user_key,
    SUM(CASE WHEN up.film_id = wc.film_id THEN 1 ELSE 0 END) AS correct
  FROM user_picks up
  JOIN winner_categories wc ON wc.category_id = up.category_id
  WHERE up.year = ?
  GROUP BY up.user_key
)
SELECT
  COALESCE(SUM(CASE WHEN correct < ? THEN 1 ELSE 0 END), 0) AS beaten,
  COUNT(*) AS total_others
FROM user_scores
WHERE user_key <> ?`

const rankScoresSQL = `
WITH winner_categories AS (
  SELECT category_id, film_id
  FROM category_winners
  WHERE year = ?
),
user_scores AS (
  SELECT
    up.user_key AS user_key,
    SUM(CASE WHEN up.film_id = wc.film_id THEN 1 ELSE 0 END) AS correct
  FROM user_picks up
  JOIN winner_categories wc ON wc.category_id = up.category_id
  WHERE up.year = ?
  GROUP BY up.user_key
),
current_score AS (
  SELECT COALESCE(
    (SELECT correct FROM user_scores WHERE user_key = ?),
    0
  ) AS correct
)
SELECT
  1 + COALESCE(SUM(CASE WHEN us.correct > (SELECT correct FROM current_score) THEN 1 ELSE 0 END), 0) AS rank_position,
  COUNT(*) AS ranked_user_count,
  COALESCE(SUM(CASE WHEN us.correct = (SELECT correct FROM current_score) THEN 1 ELSE 0 END), 0) AS tied_user_count
FROM user_scores us`

// Get returns seen film ids, picks by category and the performance block.
func (h *UserStateHandler) Get(c *gin.Context) {
	year := yearParam(c)
	userKey := c.Query("userKey")
	if userKey == "" {
		userKey = DefaultUserKey
	}
	conn := h.db.WithContext(c.Request.Context())

	seenFilmIDs := make([]string, 0)
	if errFind := conn.Model(&models.UserSeen{}).
		Where("year = ? AND user_key = ? AND seen = ?", year, userKey, true).
		Pluck("film_id", &seenFilmIDs).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var picks []pickRow
	if errFind := conn.Raw(`
SELECT c.name AS category, up.film_id AS film_id
FROM user_picks up
JOIN categories c ON c.id = up.category_id
WHERE up.year = ? AND up.user_key = ?`, year, userKey).Scan(&picks).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	picksByCategory := make(map[string]string, len(picks))
	for _, pick := range picks {
		picksByCategory[pick.Category] = pick.FilmID
	}

	var winnerCount int64
	if errCount := conn.Model(&models.CategoryWinner{}).
		Where("year = ?", year).Count(&winnerCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var userCorrect int64
	if errCount := conn.Raw(`
SELECT COUNT(*)
FROM user_picks up
JOIN category_winners cw
  ON cw.year = up.year
 AND cw.category_id = up.category_id
 AND cw.film_id = up.film_id
WHERE up.year = ? AND up.user_key = ?`, year, userKey).Scan(&userCorrect).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var others otherScores
	if errScan := conn.Raw(otherScoresSQL, year, year, userCorrect, userKey).
		Scan(&others).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	betterThanPercent := 0
	if others.TotalOthers > 0 {
		betterThanPercent = int(math.Round(float64(others.Beaten) / float64(others.TotalOthers) * 100))
	}

	var rank rankScores
	if errScan := conn.Raw(rankScoresSQL, year, year, userKey).
		Scan(&rank).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	rankPosition := rank.RankPosition
	tiedUserCount := rank.TiedUserCount
	if rank.RankedUserCount == 0 {
		rankPosition = 1
		tiedUserCount = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"seenFilmIds":     seenFilmIDs,
		"picksByCategory": picksByCategory,
		"performance": gin.H{
			"winnerCategoryCount": winnerCount,
			"userCorrectCount":    userCorrect,
			"betterThanPercent":   betterThanPercent,
			"comparedUserCount":   others.TotalOthers,
			"rankPosition":        rankPosition,
			"rankedUserCount":     rank.RankedUserCount,
			"tiedUserCount":       tiedUserCount,
		},
	})
}

// seenRequest defines the seen-flag upsert body.
type seenRequest struct {
	Year    int    `json:"year"`
	UserKey string `json:"userKey"`
	FilmID  string `json:"filmId"`
	Seen    bool   `json:"seen"`
}

// PutSeen upserts one film's seen flag for a user.
func (h *UserStateHandler) PutSeen(c *gin.Context) {
	var body seenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	userKey := body.UserKey
	if userKey == "" {
		userKey = DefaultUserKey
	}
	row := models.UserSeen{UserKey: userKey, Year: body.Year, FilmID: body.FilmID, Seen: body.Seen}
	if errSave := h.db.WithContext(c.Request.Context()).Save(&row).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// pickRequest defines the pick upsert body.
type pickRequest struct {
	Year     int    `json:"year"`
	UserKey  string `json:"userKey"`
	Category string `json:"category"`
	FilmID   string `json:"filmId"`
	Picked   bool   `json:"picked"`
}

// PutPick upserts or removes one pick. Picks are rejected while the
// year's voting lock is enabled.
func (h *UserStateHandler) PutPick(c *gin.Context) {
	var body pickRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	userKey := body.UserKey
	if userKey == "" {
		userKey = DefaultUserKey
	}
	ctx := c.Request.Context()

	var category models.Category
	errFind := h.db.WithContext(ctx).
		Where("year = ? AND name = ?", body.Year, body.Category).
		First(&category).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Unknown category"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	var lock models.VotingLock
	if h.db.WithContext(ctx).Where("year = ?", body.Year).First(&lock).Error == nil && lock.Enabled {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Voting is locked"})
		return
	}

	if body.Picked {
		pick := models.UserPick{UserKey: userKey, Year: body.Year, CategoryID: category.ID, FilmID: body.FilmID}
		if errSave := h.db.WithContext(ctx).Save(&pick).Error; errSave != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
	} else {
		if errDel := h.db.WithContext(ctx).
			Where("user_key = ? AND year = ? AND category_id = ? AND film_id = ?",
				userKey, body.Year, category.ID, body.FilmID).
			Delete(&models.UserPick{}).Error; errDel != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
