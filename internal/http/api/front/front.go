// Package front registers the public site API.
package front

import (
	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/http/api/front/handlers"
	"github.com/whatsnominated/backend/internal/mailer"
	"github.com/whatsnominated/backend/internal/posters"
	"github.com/whatsnominated/backend/internal/watch"
	"gorm.io/gorm"
)

// RegisterFrontRoutes mounts the public endpoints on the engine.
func RegisterFrontRoutes(engine *gin.Engine, db *gorm.DB, posterCache *posters.Cache, resolver *watch.Resolver, sender mailer.Sender, supportAddress string) {
	catalog := handlers.NewCatalogHandler(db)
	userState := handlers.NewUserStateHandler(db)
	poster := handlers.NewPosterHandler(db, posterCache)
	contact := handlers.NewContactHandler(db, sender, supportAddress)
	watchRedirect := handlers.NewWatchHandler(resolver)

	api := engine.Group("/api")
	{
		api.GET("/years", catalog.Years)
		api.GET("/nominees", catalog.Nominees)
		api.GET("/user-state", userState.Get)
		api.PUT("/user-state", userState.PutSeen)
		api.PUT("/user-pick", userState.PutPick)
		api.GET("/poster-image", poster.Image)
		api.POST("/contact", contact.Submit)
	}
	engine.GET("/where-to-watch", watchRedirect.Redirect)
}
