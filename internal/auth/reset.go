package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/whatsnominated/backend/internal/audit"
	"github.com/whatsnominated/backend/internal/db"
	"github.com/whatsnominated/backend/internal/models"
	"github.com/whatsnominated/backend/internal/security"
	"gorm.io/gorm"
)

// ResetRequestedMessage is the uniform caller-visible response to a reset
// request. It never varies with account existence or delivery outcome;
// that is the anti-enumeration contract, not an oversight.
const ResetRequestedMessage = "If the account exists, a reset email has been sent."

// RequestReset throttles, then generates and mails a single-use reset
// token when the account exists. The audit entry carries accountFound and
// emailSent for operator visibility while the caller sees only the
// uniform message.
func (s *Service) RequestReset(ctx context.Context, email, baseURL string, meta RequestMeta) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.audit.Record(ctx, audit.Entry{
			Action:    "admin_password_reset_request",
			Success:   false,
			RequestIP: meta.IP,
			UserAgent: meta.UserAgent,
			Details:   map[string]any{"reason": "missing_email"},
		})
		return ErrMissingEmail
	}

	if s.reset.Throttle(email, meta.IP) {
		s.audit.Record(ctx, audit.Entry{
			Action:     "admin_password_reset_request",
			Success:    false,
			ActorEmail: email,
			RequestIP:  meta.IP,
			UserAgent:  meta.UserAgent,
			Details:    map[string]any{"reason": "rate_limited"},
		})
		return ErrRateLimited
	}

	var user models.AdminUser
	errFind := s.db.WithContext(ctx).
		Where(db.LowerEqualExpr("email"), email).
		First(&user).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("auth: lookup user: %w", errFind)
	}
	accountFound := errFind == nil

	sent := false
	if accountFound {
		raw, errToken := security.GenerateResetToken()
		if errToken != nil {
			return errToken
		}
		reset := models.PasswordReset{
			TokenHash: security.HashToken(raw),
			UserID:    user.ID,
			ExpiresAt: s.now().Add(ResetTTL),
		}
		if errCreate := s.db.WithContext(ctx).Create(&reset).Error; errCreate != nil {
			return fmt.Errorf("auth: store reset token: %w", errCreate)
		}
		if s.mailer != nil {
			if errSend := s.mailer.SendReset(user.Email, raw, baseURL); errSend == nil {
				sent = true
			}
		}
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     "admin_password_reset_request",
		Success:    true,
		ActorEmail: email,
		RequestIP:  meta.IP,
		UserAgent:  meta.UserAgent,
		Details:    map[string]any{"accountFound": accountFound, "emailSent": sent},
	})
	return nil
}

// SubmitReset redeems a reset token exactly once: it rotates the password,
// marks the token used, revokes every existing session for the user and
// issues a fresh session (a login-equivalent outcome). Absent, expired and
// already-used tokens are indistinguishable to the caller.
func (s *Service) SubmitReset(ctx context.Context, token, password string, meta RequestMeta) (*models.AdminSession, *Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.audit.Record(ctx, audit.Entry{
			Action:    "admin_password_reset_submit",
			Success:   false,
			RequestIP: meta.IP,
			UserAgent: meta.UserAgent,
			Details:   map[string]any{"reason": "missing_token"},
		})
		return nil, nil, ErrMissingToken
	}
	if len(password) < MinPasswordLength {
		s.audit.Record(ctx, audit.Entry{
			Action:    "admin_password_reset_submit",
			Success:   false,
			RequestIP: meta.IP,
			UserAgent: meta.UserAgent,
			Details:   map[string]any{"reason": "password_too_short"},
		})
		return nil, nil, ErrPasswordTooWeak
	}

	tokenHash := security.HashToken(token)
	passwordHash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, nil, errHash
	}

	var userID uint64
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The guarded UPDATE is the redemption point: only one concurrent
		// submit can flip used_at, so a token is never redeemed twice.
		res := tx.Model(&models.PasswordReset{}).
			Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, s.now()).
			Update("used_at", s.now())
		if res.Error != nil {
			return fmt.Errorf("auth: redeem reset token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidToken
		}

		var reset models.PasswordReset
		if errFind := tx.Where("token_hash = ?", tokenHash).First(&reset).Error; errFind != nil {
			return fmt.Errorf("auth: load reset token: %w", errFind)
		}
		userID = reset.UserID

		if errUpdate := tx.Model(&models.AdminUser{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"password_hash": passwordHash,
				"updated_at":    time.Now(),
			}).Error; errUpdate != nil {
			return fmt.Errorf("auth: rotate password: %w", errUpdate)
		}

		if errDel := tx.Where("user_id = ?", userID).
			Delete(&models.AdminSession{}).Error; errDel != nil {
			return fmt.Errorf("auth: revoke sessions: %w", errDel)
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrInvalidToken) {
			s.audit.Record(ctx, audit.Entry{
				Action:    "admin_password_reset_submit",
				Success:   false,
				RequestIP: meta.IP,
				UserAgent: meta.UserAgent,
				Details:   map[string]any{"reason": "invalid_or_expired_token"},
			})
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, errTx
	}

	var user models.AdminUser
	if errFind := s.db.WithContext(ctx).First(&user, userID).Error; errFind != nil {
		return nil, nil, fmt.Errorf("auth: load user: %w", errFind)
	}

	session, errCreate := s.CreateSession(ctx, userID)
	if errCreate != nil {
		return nil, nil, errCreate
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      "admin_password_reset_submit",
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

// ProvisionAdmin creates or updates the admin account for an email with a
// freshly hashed password. Used by the create-admin CLI.
func (s *Service) ProvisionAdmin(ctx context.Context, email, password string) (*models.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrMissingEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooWeak
	}
	passwordHash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, errHash
	}

	var user models.AdminUser
	errFind := s.db.WithContext(ctx).Where(db.LowerEqualExpr("email"), email).First(&user).Error
	switch {
	case errFind == nil:
		if errUpdate := s.db.WithContext(ctx).Model(&user).
			Update("password_hash", passwordHash).Error; errUpdate != nil {
			return nil, fmt.Errorf("auth: update admin: %w", errUpdate)
		}
		if errRevoke := s.RevokeAllSessionsForUser(ctx, user.ID); errRevoke != nil {
			return nil, errRevoke
		}
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		user = models.AdminUser{Email: email, PasswordHash: passwordHash}
		if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
			return nil, fmt.Errorf("auth: create admin: %w", errCreate)
		}
	default:
		return nil, fmt.Errorf("auth: lookup admin: %w", errFind)
	}
	return &user, nil
}
