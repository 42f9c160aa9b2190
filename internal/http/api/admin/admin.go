// Package admin registers the admin API surface: the authentication
// endpoints and the session-gated management endpoints.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/audit"
	"github.com/whatsnominated/backend/internal/auth"
	internalhttp "github.com/whatsnominated/backend/internal/http"
	"github.com/whatsnominated/backend/internal/http/api/admin/handlers"
	"github.com/whatsnominated/backend/internal/posters"
	"gorm.io/gorm"
)

// RegisterAdminRoutes mounts the admin auth and management endpoints on
// the engine. Auth endpoints manage the session themselves; everything
// under /api/admin requires a live session, and mutations additionally
// require the CSRF header.
func RegisterAdminRoutes(engine *gin.Engine, db *gorm.DB, svc *auth.Service, recorder *audit.Recorder, cookie internalhttp.CookieConfig, posterCache *posters.Cache, baseURL string) {
	authHandler := handlers.NewAuthHandler(svc, cookie, baseURL)
	dashboard := handlers.NewDashboardHandler(db, recorder, cookie)
	auditLogs := handlers.NewAuditLogHandler(recorder, cookie)
	overrides := handlers.NewOverrideHandler(db, recorder, cookie, posterCache)

	authGroup := engine.Group("/api/admin-auth")
	{
		authGroup.GET("/session", authHandler.Session)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/request-reset", authHandler.RequestReset)
		authGroup.POST("/reset", authHandler.SubmitReset)
	}

	readGroup := engine.Group("/api/admin", internalhttp.RequireAdmin(svc, cookie, false))
	{
		readGroup.GET("/dashboard", dashboard.Summary)
		readGroup.GET("/audit-logs", auditLogs.List)
	}

	writeGroup := engine.Group("/api/admin", internalhttp.RequireAdmin(svc, cookie, true))
	{
		writeGroup.PUT("/banner", overrides.PutBanner)
		writeGroup.PUT("/event-mode", overrides.PutEventMode)
		writeGroup.PUT("/voting-lock", overrides.PutVotingLock)
		writeGroup.PUT("/winner", overrides.PutWinner)
		writeGroup.PUT("/poster", overrides.PutPoster)
		writeGroup.PUT("/where-to-watch", overrides.PutWatchLink)
	}
}
