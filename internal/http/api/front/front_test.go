package front

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/whatsnominated/backend/internal/db"
	"github.com/whatsnominated/backend/internal/http/api/front/handlers"
	"github.com/whatsnominated/backend/internal/models"
	"github.com/whatsnominated/backend/internal/posters"
	"github.com/whatsnominated/backend/internal/watch"
	"gorm.io/gorm"
)

type fakeSender struct {
	to      string
	replyTo string
	subject string
	body    string
	fail    bool
}

func (f *fakeSender) Send(to, subject, body string) error {
	return f.SendWithReplyTo(to, "", subject, body)
}

func (f *fakeSender) SendWithReplyTo(to, replyTo, subject, body string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.to, f.replyTo, f.subject, f.body = to, replyTo, subject, body
	return nil
}

type frontServer struct {
	engine *gin.Engine
	conn   *gorm.DB
	sender *fakeSender
	cache  *posters.Cache
}

func newFrontServer(t *testing.T) *frontServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	sender := &fakeSender{}
	cache := posters.NewCache(t.TempDir())
	engine := gin.New()
	RegisterFrontRoutes(engine, conn, cache, watch.NewResolver(), sender, "support@example.com")
	return &frontServer{engine: engine, conn: conn, sender: sender, cache: cache}
}

func (fs *frontServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fs.engine.ServeHTTP(rec, req)
	return rec
}

// seedCatalog creates a minimal 2026 catalog: two films, one category,
// two nominations.
func (fs *frontServer) seedCatalog(t *testing.T) models.Category {
	t.Helper()
	mustCreate := func(value any) {
		t.Helper()
		if errCreate := fs.conn.Create(value).Error; errCreate != nil {
			t.Fatalf("seed %T: %v", value, errCreate)
		}
	}
	mustCreate(&models.Year{Year: 2026, Label: "2026 Oscars"})
	category := models.Category{Year: 2026, Name: "Best Picture"}
	mustCreate(&category)
	mustCreate(&models.Film{ID: "anora", Title: "Anora", ExternalID: "tt28607951"})
	mustCreate(&models.Film{ID: "conclave", Title: "Conclave"})
	mustCreate(&models.FilmYear{Year: 2026, FilmID: "anora"})
	mustCreate(&models.FilmYear{Year: 2026, FilmID: "conclave"})
	mustCreate(&models.Nomination{Year: 2026, CategoryID: category.ID, FilmID: "anora"})
	mustCreate(&models.Nomination{Year: 2026, CategoryID: category.ID, FilmID: "conclave"})
	return category
}

func TestYearsNewestFirst(t *testing.T) {
	fs := newFrontServer(t)
	fs.conn.Create(&models.Year{Year: 2025, Label: "2025 Oscars"})
	fs.conn.Create(&models.Year{Year: 2026, Label: "2026 Oscars"})

	rec := fs.do(httptest.NewRequest(http.MethodGet, "/api/years", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Years []struct {
			Year  int    `json:"year"`
			Label string `json:"label"`
		} `json:"years"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(payload.Years) != 2 || payload.Years[0].Year != 2026 {
		t.Fatalf("years = %+v", payload.Years)
	}
}

func TestNomineesPayload(t *testing.T) {
	fs := newFrontServer(t)
	category := fs.seedCatalog(t)
	fs.conn.Create(&models.WatchLink{Year: 2026, FilmID: "anora", URL: "https://example.com/anora"})
	fs.conn.Create(&models.WatchLabel{Year: 2026, FilmID: "anora", FreeToWatch: true})
	fs.conn.Create(&models.ScrapedPoster{Year: 2026, FilmID: "anora", URL: "https://img.example.com/scraped.jpg"})
	fs.conn.Create(&models.AdminPoster{Year: 2026, FilmID: "anora", URL: "https://img.example.com/admin.jpg"})
	fs.conn.Create(&models.CategoryWinner{Year: 2026, CategoryID: category.ID, FilmID: "anora"})

	rec := fs.do(httptest.NewRequest(http.MethodGet, "/api/nominees?year=2026", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Year  int `json:"year"`
		Films []struct {
			ID          string  `json:"id"`
			Title       string  `json:"title"`
			WatchURL    *string `json:"whereToWatchUrl"`
			FreeToWatch bool    `json:"freeToWatch"`
			PosterURL   *string `json:"posterUrl"`
		} `json:"films"`
		WinnersByCategory map[string]string `json:"winnersByCategory"`
		VotingLocked      bool              `json:"votingLocked"`
		EventMode         bool              `json:"eventMode"`
		Banner            struct {
			Enabled bool   `json:"enabled"`
			Text    string `json:"text"`
		} `json:"banner"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(payload.Films) != 2 {
		t.Fatalf("films = %+v", payload.Films)
	}
	// Ordered by title: Anora before Conclave.
	anora := payload.Films[0]
	if anora.ID != "anora" || !anora.FreeToWatch {
		t.Fatalf("anora = %+v", anora)
	}
	if anora.WatchURL == nil || *anora.WatchURL != "https://example.com/anora" {
		t.Fatalf("watch url = %v", anora.WatchURL)
	}
	if anora.PosterURL == nil || *anora.PosterURL != "https://img.example.com/admin.jpg" {
		t.Fatalf("poster url = %v, want admin override", anora.PosterURL)
	}
	if payload.WinnersByCategory["Best Picture"] != "anora" {
		t.Fatalf("winners = %+v", payload.WinnersByCategory)
	}
	if payload.VotingLocked || payload.EventMode {
		t.Fatal("flags should default to false")
	}
	if !payload.Banner.Enabled || payload.Banner.Text != handlers.DefaultBannerText {
		t.Fatalf("banner = %+v", payload.Banner)
	}
}

func TestNomineesCategoryFilter(t *testing.T) {
	fs := newFrontServer(t)
	fs.seedCatalog(t)
	other := models.Category{Year: 2026, Name: "Best Director"}
	fs.conn.Create(&other)
	fs.conn.Create(&models.Film{ID: "brutalist", Title: "The Brutalist"})
	fs.conn.Create(&models.FilmYear{Year: 2026, FilmID: "brutalist"})
	fs.conn.Create(&models.Nomination{Year: 2026, CategoryID: other.ID, FilmID: "brutalist"})

	rec := fs.do(httptest.NewRequest(http.MethodGet, "/api/nominees?year=2026&category=Best+Director", nil))
	var payload struct {
		Films []struct {
			ID string `json:"id"`
		} `json:"films"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(payload.Films) != 1 || payload.Films[0].ID != "brutalist" {
		t.Fatalf("films = %+v", payload.Films)
	}
}

func TestUserStatePerformance(t *testing.T) {
	fs := newFrontServer(t)
	category := fs.seedCatalog(t)
	fs.conn.Create(&models.CategoryWinner{Year: 2026, CategoryID: category.ID, FilmID: "anora"})
	fs.conn.Create(&models.UserPick{UserKey: "me", Year: 2026, CategoryID: category.ID, FilmID: "anora"})
	fs.conn.Create(&models.UserPick{UserKey: "other1", Year: 2026, CategoryID: category.ID, FilmID: "conclave"})
	fs.conn.Create(&models.UserPick{UserKey: "other2", Year: 2026, CategoryID: category.ID, FilmID: "anora"})
	fs.conn.Create(&models.UserSeen{UserKey: "me", Year: 2026, FilmID: "anora", Seen: true})
	fs.conn.Create(&models.UserSeen{UserKey: "me", Year: 2026, FilmID: "conclave", Seen: false})

	rec := fs.do(httptest.NewRequest(http.MethodGet, "/api/user-state?year=2026&userKey=me", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		SeenFilmIDs     []string          `json:"seenFilmIds"`
		PicksByCategory map[string]string `json:"picksByCategory"`
		Performance     struct {
			WinnerCategoryCount int `json:"winnerCategoryCount"`
			UserCorrectCount    int `json:"userCorrectCount"`
			BetterThanPercent   int `json:"betterThanPercent"`
			ComparedUserCount   int `json:"comparedUserCount"`
			RankPosition        int `json:"rankPosition"`
			RankedUserCount     int `json:"rankedUserCount"`
			TiedUserCount       int `json:"tiedUserCount"`
		} `json:"performance"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(payload.SeenFilmIDs) != 1 || payload.SeenFilmIDs[0] != "anora" {
		t.Fatalf("seen = %+v", payload.SeenFilmIDs)
	}
	if payload.PicksByCategory["Best Picture"] != "anora" {
		t.Fatalf("picks = %+v", payload.PicksByCategory)
	}
	perf := payload.Performance
	if perf.WinnerCategoryCount != 1 || perf.UserCorrectCount != 1 {
		t.Fatalf("performance = %+v", perf)
	}
	// One of two others beaten: 50 percent.
	if perf.BetterThanPercent != 50 || perf.ComparedUserCount != 2 {
		t.Fatalf("performance = %+v", perf)
	}
	// No one scored higher; tied with other2.
	if perf.RankPosition != 1 || perf.RankedUserCount != 3 || perf.TiedUserCount != 2 {
		t.Fatalf("performance = %+v", perf)
	}
}

func TestUserStateDefaultsWhenUnranked(t *testing.T) {
	fs := newFrontServer(t)
	fs.seedCatalog(t)

	rec := fs.do(httptest.NewRequest(http.MethodGet, "/api/user-state?year=2026", nil))
	var payload struct {
		Performance struct {
			RankPosition  int `json:"rankPosition"`
			TiedUserCount int `json:"tiedUserCount"`
		} `json:"performance"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if payload.Performance.RankPosition != 1 || payload.Performance.TiedUserCount != 1 {
		t.Fatalf("performance = %+v", payload.Performance)
	}
}

func TestPutSeenUpserts(t *testing.T) {
	fs := newFrontServer(t)
	fs.seedCatalog(t)

	req := httptest.NewRequest(http.MethodPut, "/api/user-state",
		strings.NewReader(`{"year":2026,"userKey":"me","filmId":"anora","seen":true}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := fs.do(req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var row models.UserSeen
	if errFind := fs.conn.Where("user_key = ? AND year = ? AND film_id = ?", "me", 2026, "anora").
		First(&row).Error; errFind != nil {
		t.Fatalf("seen row missing: %v", errFind)
	}
	if !row.Seen {
		t.Fatal("seen flag not set")
	}
}

func TestPutPickRespectsVotingLock(t *testing.T) {
	fs := newFrontServer(t)
	fs.seedCatalog(t)

	pick := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/user-pick",
			strings.NewReader(`{"year":2026,"userKey":"me","category":"Best Picture","filmId":"anora","picked":true}`))
		req.Header.Set("Content-Type", "application/json")
		return fs.do(req)
	}

	if rec := pick(); rec.Code != http.StatusOK {
		t.Fatalf("pick status = %d", rec.Code)
	}

	fs.conn.Create(&models.VotingLock{Year: 2026, Enabled: true})
	if rec := pick(); rec.Code != http.StatusForbidden {
		t.Fatalf("locked pick status = %d, want 403", rec.Code)
	}
}

func TestPutPickUnknownCategory(t *testing.T) {
	fs := newFrontServer(t)
	fs.seedCatalog(t)

	req := httptest.NewRequest(http.MethodPut, "/api/user-pick",
		strings.NewReader(`{"year":2026,"category":"Best Nothing","filmId":"anora","picked":true}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := fs.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPutPickRemovesExactRow(t *testing.T) {
	fs := newFrontServer(t)
	category := fs.seedCatalog(t)
	fs.conn.Create(&models.UserPick{UserKey: "me", Year: 2026, CategoryID: category.ID, FilmID: "anora"})

	req := httptest.NewRequest(http.MethodPut, "/api/user-pick",
		strings.NewReader(`{"year":2026,"userKey":"me","category":"Best Picture","filmId":"anora","picked":false}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := fs.do(req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var count int64
	fs.conn.Model(&models.UserPick{}).Count(&count)
	if count != 0 {
		t.Fatalf("pick rows = %d, want 0", count)
	}
}

func TestPosterImageResolution(t *testing.T) {
	fs := newFrontServer(t)
	fs.seedCatalog(t)

	// Nothing known: 404.
	rec := fs.do(httptest.NewRequest(http.MethodGet, "/api/poster-image?year=2026&filmId=anora", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	// Scraped fallback redirects.
	fs.conn.Create(&models.ScrapedPoster{Year: 2026, FilmID: "anora", URL: "https://img.example.com/scraped.jpg"})
	rec = fs.do(httptest.NewRequest(http.MethodGet, "/api/poster-image?year=2026&filmId=anora", nil))
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "https://img.example.com/scraped.jpg" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}

	// Disk cache wins over the scraped URL.
	cachePath := fs.cache.Path(2026, "anora")
	if errMkdir := os.MkdirAll(filepath.Dir(cachePath), 0o755); errMkdir != nil {
		t.Fatalf("mkdir: %v", errMkdir)
	}
	if errWrite := os.WriteFile(cachePath, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0o644); errWrite != nil {
		t.Fatalf("write cache: %v", errWrite)
	}
	rec = fs.do(httptest.NewRequest(http.MethodGet, "/api/poster-image?year=2026&filmId=anora", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cached status = %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=86400" {
		t.Fatalf("cache-control = %q", got)
	}

	// Admin override beats everything.
	fs.conn.Create(&models.AdminPoster{Year: 2026, FilmID: "anora", URL: "https://img.example.com/admin.jpg"})
	rec = fs.do(httptest.NewRequest(http.MethodGet, "/api/poster-image?year=2026&filmId=anora", nil))
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "https://img.example.com/admin.jpg" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPosterImageRequiresFilmID(t *testing.T) {
	fs := newFrontServer(t)
	rec := fs.do(httptest.NewRequest(http.MethodGet, "/api/poster-image?year=2026", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPosterImageRejectsTraversalFilmID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	base := t.TempDir()
	cacheDir := filepath.Join(base, "cache", "posters")
	if errMkdir := os.MkdirAll(cacheDir, 0o755); errMkdir != nil {
		t.Fatalf("mkdir: %v", errMkdir)
	}
	outside := filepath.Join(base, "secret.jpg")
	if errWrite := os.WriteFile(outside, []byte("outside-cache-bytes"), 0o644); errWrite != nil {
		t.Fatalf("write: %v", errWrite)
	}

	engine := gin.New()
	RegisterFrontRoutes(engine, conn, posters.NewCache(cacheDir), watch.NewResolver(), &fakeSender{}, "support@example.com")

	for _, filmID := range []string{"../secret", "../../secret", "sub/../../secret", ".."} {
		rec := httptest.NewRecorder()
		target := "/api/poster-image?year=2026&filmId=" + url.QueryEscape(filmID)
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("filmId %q: status = %d, want 400", filmID, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "outside-cache-bytes") {
			t.Fatalf("filmId %q leaked a file outside the cache root", filmID)
		}
	}
}

func TestContactDeliversAndPersists(t *testing.T) {
	fs := newFrontServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/contact",
		strings.NewReader(`{"name":"Pat","email":"pat@example.com","topic":"Feedback","message":"Great site"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := fs.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if fs.sender.to != "support@example.com" || fs.sender.replyTo != "pat@example.com" {
		t.Fatalf("sender = %+v", fs.sender)
	}

	var row models.ContactSubmission
	if errFind := fs.conn.First(&row).Error; errFind != nil {
		t.Fatalf("submission missing: %v", errFind)
	}
	if !row.Sent || row.SendError != "" {
		t.Fatalf("submission = %+v", row)
	}
}

func TestContactRecordsDeliveryFailure(t *testing.T) {
	fs := newFrontServer(t)
	fs.sender.fail = true

	req := httptest.NewRequest(http.MethodPost, "/api/contact",
		strings.NewReader(`{"name":"Pat","email":"pat@example.com","message":"Hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := fs.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		OK   bool `json:"ok"`
		Sent bool `json:"sent"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if !payload.OK || payload.Sent {
		t.Fatalf("payload = %+v", payload)
	}

	var row models.ContactSubmission
	if errFind := fs.conn.First(&row).Error; errFind != nil {
		t.Fatalf("submission missing: %v", errFind)
	}
	if row.Sent || row.SendError == "" {
		t.Fatalf("submission = %+v", row)
	}
}

func TestContactValidation(t *testing.T) {
	fs := newFrontServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/contact",
		strings.NewReader(`{"name":"","email":"pat@example.com","message":""}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := fs.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
