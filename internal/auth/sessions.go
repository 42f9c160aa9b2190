// Package auth implements the admin trust core: session issuance and
// validation, CSRF enforcement, login lockout and the password-reset
// token lifecycle.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/audit"
	"github.com/whatsnominated/backend/internal/db"
	"github.com/whatsnominated/backend/internal/models"
	"github.com/whatsnominated/backend/internal/ratelimit"
	"github.com/whatsnominated/backend/internal/security"
	"gorm.io/gorm"
)

const (
	// SessionTTL is the absolute session lifetime.
	SessionTTL = 14 * 24 * time.Hour
	// ResetTTL is the password-reset token lifetime.
	ResetTTL = 60 * time.Minute
	// MinPasswordLength is the minimum accepted new-password length.
	MinPasswordLength = 10
)

// Identity is a validated admin identity attached to a live session.
type Identity struct {
	UserID    uint64 `json:"id"`    // Admin user ID.
	Email     string `json:"email"` // Admin email.
	CSRFToken string `json:"-"`     // Session CSRF secret.
}

// RequestMeta carries per-request origin data used for auditing and
// rate limiting.
type RequestMeta struct {
	IP        string // Client address.
	UserAgent string // Client user agent.
	Path      string // Request path, for rejection audits.
}

// Service coordinates the durable auth store, the in-memory lockout
// guards and the audit recorder. One instance is built per server and
// injected into handlers; it holds no per-request state of its own.
type Service struct {
	db     *gorm.DB
	login  *ratelimit.Guard
	reset  *ratelimit.Guard
	audit  *audit.Recorder
	mailer ResetMailer
	now    func() time.Time
}

// ResetMailer delivers the reset link for a requested password reset.
type ResetMailer interface {
	SendReset(email, rawToken, baseURL string) error
}

// NewService constructs the auth service.
func NewService(conn *gorm.DB, login, reset *ratelimit.Guard, recorder *audit.Recorder, resetMailer ResetMailer) *Service {
	return &Service{
		db:     conn,
		login:  login,
		reset:  reset,
		audit:  recorder,
		mailer: resetMailer,
		now:    time.Now,
	}
}

// CreateSession prunes expired auth artifacts, then issues a session with
// a fresh CSRF token and a 14-day absolute expiry.
func (s *Service) CreateSession(ctx context.Context, userID uint64) (*models.AdminSession, error) {
	s.pruneAuthArtifacts(ctx)

	token, errToken := security.GenerateSessionToken()
	if errToken != nil {
		return nil, errToken
	}
	csrf, errCSRF := security.GenerateCSRFToken()
	if errCSRF != nil {
		return nil, errCSRF
	}
	session := models.AdminSession{
		Token:     token,
		UserID:    userID,
		CSRFToken: csrf,
		ExpiresAt: s.now().Add(SessionTTL),
	}
	if errCreate := s.db.WithContext(ctx).Create(&session).Error; errCreate != nil {
		return nil, fmt.Errorf("auth: create session: %w", errCreate)
	}
	return &session, nil
}

// pruneAuthArtifacts opportunistically deletes expired sessions and
// used or expired reset tokens. Amortized on session creation; there is
// no background sweeper. Failures are logged and ignored.
func (s *Service) pruneAuthArtifacts(ctx context.Context) {
	now := s.now()
	if errDel := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.AdminSession{}).Error; errDel != nil {
		log.WithError(errDel).Warn("auth: prune expired sessions")
	}
	if errDel := s.db.WithContext(ctx).
		Where("used_at IS NOT NULL OR expires_at <= ?", now).
		Delete(&models.PasswordReset{}).Error; errDel != nil {
		log.WithError(errDel).Warn("auth: prune reset tokens")
	}
}

// ValidateSession resolves a session token to its admin identity. Expiry
// is evaluated here, at lookup time; a row past its expiry never
// authenticates even if pruning has not caught up with it. A session found
// with an empty CSRF token is repaired exactly once and persisted before
// being returned.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoSession
	}
	var session models.AdminSession
	errFind := s.db.WithContext(ctx).
		Preload("User").
		Where("token = ? AND expires_at > ?", token, s.now()).
		First(&session).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("auth: validate session: %w", errFind)
	}
	if session.User == nil {
		return nil, ErrNoSession
	}

	if strings.TrimSpace(session.CSRFToken) == "" {
		csrf, errGen := security.GenerateCSRFToken()
		if errGen != nil {
			return nil, errGen
		}
		if errUpdate := s.db.WithContext(ctx).Model(&models.AdminSession{}).
			Where("token = ?", session.Token).
			Update("csrf_token", csrf).Error; errUpdate != nil {
			return nil, fmt.Errorf("auth: repair csrf token: %w", errUpdate)
		}
		session.CSRFToken = csrf
	}

	return &Identity{
		UserID:    session.UserID,
		Email:     session.User.Email,
		CSRFToken: session.CSRFToken,
	}, nil
}

// RequireSession wraps ValidateSession with optional CSRF enforcement.
// Reads pass needCSRF=false; anything state-mutating passes true and must
// echo the session's CSRF token on the custom header. Every rejection is
// audited with the attempted path and reason before the error returns.
func (s *Service) RequireSession(ctx context.Context, token string, needCSRF bool, presentedCSRF string, meta RequestMeta) (*Identity, error) {
	identity, errValidate := s.ValidateSession(ctx, token)
	if errValidate != nil {
		if errors.Is(errValidate, ErrNoSession) {
			s.audit.Record(ctx, audit.Entry{
				Action:    "admin_api_unauthorized",
				Success:   false,
				RequestIP: meta.IP,
				UserAgent: meta.UserAgent,
				Details:   map[string]any{"path": meta.Path, "reason": "no_session"},
			})
			return nil, ErrNoSession
		}
		return nil, errValidate
	}
	if needCSRF {
		presented := strings.TrimSpace(presentedCSRF)
		if presented == "" || presented != identity.CSRFToken {
			s.audit.Record(ctx, audit.Entry{
				Action:      "admin_api_forbidden",
				Success:     false,
				AdminUserID: &identity.UserID,
				ActorEmail:  identity.Email,
				RequestIP:   meta.IP,
				UserAgent:   meta.UserAgent,
				Details:     map[string]any{"path": meta.Path, "reason": "csrf_mismatch"},
			})
			return nil, ErrInvalidCSRF
		}
	}
	return identity, nil
}

// RevokeSession deletes a session if present. Idempotent; revoking an
// unknown token is not an error.
func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if errDel := s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.AdminSession{}).Error; errDel != nil {
		return fmt.Errorf("auth: revoke session: %w", errDel)
	}
	return nil
}

// RevokeAllSessionsForUser deletes every session owned by a user. Used
// after password changes so old cookies die with the old password.
func (s *Service) RevokeAllSessionsForUser(ctx context.Context, userID uint64) error {
	if errDel := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.AdminSession{}).Error; errDel != nil {
		return fmt.Errorf("auth: revoke sessions for user: %w", errDel)
	}
	return nil
}

// Login verifies credentials under the lockout guard and issues a session.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (*models.AdminSession, *Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if s.login.IsLocked(email, meta.IP) {
		s.audit.Record(ctx, audit.Entry{
			Action:     "admin_login",
			Success:    false,
			ActorEmail: email,
			RequestIP:  meta.IP,
			UserAgent:  meta.UserAgent,
			Details:    map[string]any{"reason": "rate_limited"},
		})
		return nil, nil, ErrRateLimited
	}

	var user models.AdminUser
	errFind := s.db.WithContext(ctx).
		Where(db.LowerEqualExpr("email"), email).
		First(&user).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("auth: lookup user: %w", errFind)
	}

	if errFind != nil || !security.CheckPassword(user.PasswordHash, password) {
		s.login.RecordAttempt(email, meta.IP, false)
		s.audit.Record(ctx, audit.Entry{
			Action:     "admin_login",
			Success:    false,
			ActorEmail: email,
			RequestIP:  meta.IP,
			UserAgent:  meta.UserAgent,
			Details:    map[string]any{"reason": "invalid_credentials"},
		})
		return nil, nil, ErrInvalidCredentials
	}

	s.login.RecordAttempt(email, meta.IP, true)
	session, errCreate := s.CreateSession(ctx, user.ID)
	if errCreate != nil {
		return nil, nil, errCreate
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      "admin_login",
		Success:     true,
		AdminUserID: &user.ID,
		ActorEmail:  user.Email,
		RequestIP:   meta.IP,
		UserAgent:   meta.UserAgent,
		Details:     map[string]any{"reason": "success"},
	})
	identity := &Identity{UserID: user.ID, Email: user.Email, CSRFToken: session.CSRFToken}
	return session, identity, nil
}

// Logout revokes the presented session and audits the action when the
// session belonged to a known admin.
func (s *Service) Logout(ctx context.Context, token string, identity *Identity, meta RequestMeta) error {
	if identity != nil {
		s.audit.Record(ctx, audit.Entry{
			Action:      "admin_logout",
			Success:     true,
			AdminUserID: &identity.UserID,
			ActorEmail:  identity.Email,
			RequestIP:   meta.IP,
			UserAgent:   meta.UserAgent,
			Details:     map[string]any{"reason": "manual"},
		})
	}
	return s.RevokeSession(ctx, token)
}
