// Package app wires configuration, storage and the HTTP surface into the
// runnable server.
package app

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/audit"
	"github.com/whatsnominated/backend/internal/auth"
	"github.com/whatsnominated/backend/internal/config"
	"github.com/whatsnominated/backend/internal/db"
	internalhttp "github.com/whatsnominated/backend/internal/http"
	"github.com/whatsnominated/backend/internal/http/api/admin"
	"github.com/whatsnominated/backend/internal/http/api/front"
	"github.com/whatsnominated/backend/internal/mailer"
	"github.com/whatsnominated/backend/internal/posters"
	"github.com/whatsnominated/backend/internal/ratelimit"
	"github.com/whatsnominated/backend/internal/watch"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// sessionCookieMaxAge mirrors the session TTL.
const sessionCookieMaxAge = int(auth.SessionTTL / time.Second)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// ProvisionAdmin creates or updates an admin account.
func ProvisionAdmin(ctx context.Context, cfg *config.Config, email, password string) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	svc := buildAuthService(cfg, conn)
	user, errProvision := svc.ProvisionAdmin(ctx, email, password)
	if errProvision != nil {
		return errProvision
	}
	log.Infof("admin account ready: %s (id=%d)", user.Email, user.ID)
	return nil
}

// RunServer boots the site server and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	engine := buildEngine(cfg, conn)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("serving on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case errServe := <-errCh:
		if errServe == http.ErrServerClosed {
			return nil
		}
		return errServe
	}
}

func buildAuthService(cfg *config.Config, conn *gorm.DB) *auth.Service {
	loginWindow, loginLockout := cfg.LoginDuration()
	resetWindow, resetLockout := cfg.ResetDuration()
	loginGuard := ratelimit.New(ratelimit.Config{
		Window:      loginWindow,
		MaxAttempts: cfg.Auth.Login.Limit,
		Lockout:     loginLockout,
	})
	resetGuard := ratelimit.New(ratelimit.Config{
		Window:      resetWindow,
		MaxAttempts: cfg.Auth.Reset.Limit,
		Lockout:     resetLockout,
	})
	recorder := audit.NewRecorder(conn, cfg.Audit.RetentionDays)
	sender := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From,
		cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.STARTTLS)
	return auth.NewService(conn, loginGuard, resetGuard, recorder, mailer.NewResetSender(sender))
}

// buildEngine assembles the full route table.
func buildEngine(cfg *config.Config, conn *gorm.DB) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	recorder := audit.NewRecorder(conn, cfg.Audit.RetentionDays)
	svc := buildAuthService(cfg, conn)
	sender := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From,
		cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.STARTTLS)
	posterCache := posters.NewCache(cfg.Posters.CacheDir)
	resolver := watch.NewResolver()

	cookie := internalhttp.CookieConfig{
		Name:       cfg.Auth.CookieName,
		Secure:     cfg.Auth.SecureCookie,
		TrustProxy: cfg.Server.TrustProxyHeaders,
		MaxAge:     sessionCookieMaxAge,
	}

	admin.RegisterAdminRoutes(engine, conn, svc, recorder, cookie, posterCache, cfg.Server.BaseURL)
	front.RegisterFrontRoutes(engine, conn, posterCache, resolver, sender, cfg.Email.SupportAddress)

	registerStaticSite(engine, svc, cookie, cfg.Server.WebRoot)
	return engine
}

// adminPages require a live session before the static file is served.
var adminPages = map[string]bool{
	"/admin.html":       true,
	"/admin-audit.html": true,
}

// registerStaticSite serves the web root, gating the admin pages behind a
// session check and redirecting anonymous visitors to the login page.
func registerStaticSite(engine *gin.Engine, svc *auth.Service, cookie internalhttp.CookieConfig, webRoot string) {
	fileServer := http.FileServer(http.Dir(webRoot))
	engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}
		requestPath := c.Request.URL.Path
		if strings.HasPrefix(requestPath, "/api/") {
			c.Status(http.StatusNotFound)
			return
		}
		if adminPages[requestPath] {
			token := cookie.SessionToken(c)
			if _, errValidate := svc.ValidateSession(c.Request.Context(), token); errValidate != nil {
				c.Redirect(http.StatusFound, "/admin-login.html")
				return
			}
		}

		cleaned := path.Clean("/" + requestPath)
		if cleaned == "/" {
			cleaned = "/index.html"
		}
		if _, errStat := os.Stat(filepath.Join(webRoot, filepath.FromSlash(strings.TrimPrefix(cleaned, "/")))); errStat != nil {
			c.Status(http.StatusNotFound)
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("request")
	}
}
