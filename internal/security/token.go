package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// Token entropy sizes in bytes.
const (
	sessionTokenBytes = 32
	csrfTokenBytes    = 24
	resetTokenBytes   = 48
)

// randomToken returns a URL-safe random string with n bytes of entropy.
func randomToken(n int) (string, error) {
	secret := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("security: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(secret), nil
}

// GenerateSessionToken creates a new opaque session token.
func GenerateSessionToken() (string, error) {
	return randomToken(sessionTokenBytes)
}

// GenerateCSRFToken creates a new per-session CSRF secret.
func GenerateCSRFToken() (string, error) {
	return randomToken(csrfTokenBytes)
}

// GenerateResetToken creates a new raw password-reset token.
func GenerateResetToken() (string, error) {
	return randomToken(resetTokenBytes)
}

// HashToken returns the SHA-256 hex digest of a raw token. Reset tokens are
// stored only in this form.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
