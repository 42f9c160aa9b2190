// Package http carries the gin middleware shared by the public and
// admin route groups: session resolution, CSRF enforcement and client
// origin extraction.
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/auth"
)

// CSRFHeader is the request header that must echo the session's CSRF
// token on state-changing admin calls.
const CSRFHeader = "X-CSRF-Token"

// Context keys set by the middleware.
const (
	ContextIdentity     = "adminIdentity"
	ContextSessionToken = "adminSessionToken"
)

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name       string // Cookie name.
	Secure     *bool  // Forced Secure attribute; nil derives from the request.
	TrustProxy bool   // Honor X-Forwarded-For / X-Forwarded-Proto.
	MaxAge     int    // Session cookie lifetime in seconds.
}

// ClientMeta extracts the request origin for auditing and rate limiting.
// The forwarded header is only consulted when the deployment fronts the
// process with a proxy; otherwise it is attacker-controlled.
func ClientMeta(c *gin.Context, trustProxy bool) auth.RequestMeta {
	ip := c.ClientIP()
	if trustProxy {
		if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
			ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
	}
	return auth.RequestMeta{
		IP:        ip,
		UserAgent: c.GetHeader("User-Agent"),
		Path:      c.Request.URL.Path,
	}
}

// cookieSecure decides the Secure attribute: forced by config when set,
// otherwise on when the request arrived over TLS (directly or via a
// trusted proxy).
func (cfg CookieConfig) cookieSecure(c *gin.Context) bool {
	if cfg.Secure != nil {
		return *cfg.Secure
	}
	if c.Request.TLS != nil {
		return true
	}
	return cfg.TrustProxy && strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

// SetSessionCookie writes the admin session cookie on the response.
func (cfg CookieConfig) SetSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.cookieSecure(c),
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the admin session cookie.
func (cfg CookieConfig) ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.cookieSecure(c),
		SameSite: http.SameSiteStrictMode,
	})
}

// SessionToken returns the raw session cookie value, if any.
func (cfg CookieConfig) SessionToken(c *gin.Context) string {
	token, errCookie := c.Cookie(cfg.Name)
	if errCookie != nil {
		return ""
	}
	return token
}

// RequireAdmin gates a route group on a valid session; needCSRF
// additionally demands the CSRF header on every request. Rejections are
// audited inside the auth service before the JSON error is written.
func RequireAdmin(svc *auth.Service, cfg CookieConfig, needCSRF bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := ClientMeta(c, cfg.TrustProxy)
		token := cfg.SessionToken(c)
		identity, errRequire := svc.RequireSession(
			c.Request.Context(), token, needCSRF, c.GetHeader(CSRFHeader), meta)
		if errRequire != nil {
			status, message := MapAuthError(errRequire)
			c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": message})
			return
		}
		c.Set(ContextIdentity, identity)
		c.Set(ContextSessionToken, token)
		c.Next()
	}
}

// IdentityFromContext returns the identity set by RequireAdmin.
func IdentityFromContext(c *gin.Context) *auth.Identity {
	value, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	identity, _ := value.(*auth.Identity)
	return identity
}

// MapAuthError converts auth service errors to an HTTP status and a
// caller-facing message.
func MapAuthError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized, "Not logged in."
	case errors.Is(err, auth.ErrInvalidCSRF):
		return http.StatusForbidden, "Invalid CSRF token."
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many attempts. Try again later."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password."
	case errors.Is(err, auth.ErrMissingEmail):
		return http.StatusBadRequest, "Email is required."
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusBadRequest, "Reset token is required."
	case errors.Is(err, auth.ErrPasswordTooWeak):
		return http.StatusBadRequest, "Password must be at least 10 characters."
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid or expired reset token."
	default:
		return http.StatusInternalServerError, "Internal error."
	}
}
