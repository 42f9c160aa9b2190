package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/watch"
)

// WatchHandler redirects titles to their streaming search result.
type WatchHandler struct {
	resolver *watch.Resolver
}

// NewWatchHandler constructs a WatchHandler.
func NewWatchHandler(resolver *watch.Resolver) *WatchHandler {
	return &WatchHandler{resolver: resolver}
}

// Redirect sends the browser to the resolved page for the given title.
func (h *WatchHandler) Redirect(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	c.Redirect(http.StatusFound, h.resolver.Resolve(title))
}
