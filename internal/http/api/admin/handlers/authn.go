// Package handlers implements the admin API endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/auth"
	internalhttp "github.com/whatsnominated/backend/internal/http"
)

// AuthHandler serves the admin authentication endpoints: session probe,
// login, logout and the password-reset pair.
type AuthHandler struct {
	svc     *auth.Service
	cookie  internalhttp.CookieConfig
	baseURL string
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *auth.Service, cookie internalhttp.CookieConfig, baseURL string) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie, baseURL: baseURL}
}

// Session reports whether the caller holds a live session. The CSRF
// token is returned here so the admin UI can echo it on writes.
func (h *AuthHandler) Session(c *gin.Context) {
	identity, errValidate := h.svc.ValidateSession(c.Request.Context(), h.cookie.SessionToken(c))
	if errValidate != nil {
		c.JSON(http.StatusOK, gin.H{"loggedIn": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"loggedIn":  true,
		"admin":     gin.H{"id": identity.UserID, "email": identity.Email},
		"csrfToken": identity.CSRFToken,
	})
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates credentials and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}

	meta := internalhttp.ClientMeta(c, h.cookie.TrustProxy)
	session, identity, errLogin := h.svc.Login(c.Request.Context(), body.Email, body.Password, meta)
	if errLogin != nil {
		status, message := internalhttp.MapAuthError(errLogin)
		c.JSON(status, gin.H{"ok": false, "error": message})
		return
	}

	h.cookie.SetSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"loggedIn":  true,
		"admin":     gin.H{"id": identity.UserID, "email": identity.Email},
		"csrfToken": identity.CSRFToken,
	})
}

// Logout revokes the session and clears the cookie. A logged-in caller
// must present the CSRF header; an anonymous call just clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	meta := internalhttp.ClientMeta(c, h.cookie.TrustProxy)
	token := h.cookie.SessionToken(c)

	var identity *auth.Identity
	if _, errValidate := h.svc.ValidateSession(c.Request.Context(), token); errValidate == nil {
		required, errRequire := h.svc.RequireSession(
			c.Request.Context(), token, true, c.GetHeader(internalhttp.CSRFHeader), meta)
		if errRequire != nil {
			status, message := internalhttp.MapAuthError(errRequire)
			c.JSON(status, gin.H{"ok": false, "error": message})
			return
		}
		identity = required
	}

	if errLogout := h.svc.Logout(c.Request.Context(), token, identity, meta); errLogout != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}
	h.cookie.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"ok": true, "loggedIn": false})
}

// resetRequest defines the request body for requesting a reset email.
type resetRequest struct {
	Email string `json:"email"`
}

// RequestReset kicks off the password-reset flow. The response is the
// same whether or not the account exists.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var body resetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}

	meta := internalhttp.ClientMeta(c, h.cookie.TrustProxy)
	if errRequest := h.svc.RequestReset(c.Request.Context(), body.Email, h.baseURL, meta); errRequest != nil {
		status, message := internalhttp.MapAuthError(errRequest)
		c.JSON(status, gin.H{"ok": false, "error": message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": auth.ResetRequestedMessage})
}

// submitResetRequest defines the request body for redeeming a reset token.
type submitResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// SubmitReset redeems a reset token, rotates the password and logs the
// admin straight in on the fresh session.
func (h *AuthHandler) SubmitReset(c *gin.Context) {
	var body submitResetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}

	meta := internalhttp.ClientMeta(c, h.cookie.TrustProxy)
	session, identity, errSubmit := h.svc.SubmitReset(c.Request.Context(), body.Token, body.Password, meta)
	if errSubmit != nil {
		status, message := internalhttp.MapAuthError(errSubmit)
		c.JSON(status, gin.H{"ok": false, "error": message})
		return
	}

	h.cookie.SetSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"message":   "Password reset complete.",
		"csrfToken": identity.CSRFToken,
	})
}
