package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"tupad-admin/internal/adapters/persistence/repositories"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/jwt"
	"tupad-admin/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mailer delivers password reset codes
type Mailer interface {
	SendResetCode(ctx context.Context, to, name, code string, ttl time.Duration) error
}

// PasswordResetService handles forgot / verify / reset
type PasswordResetService struct {
	accounts repositories.AccountRepository
	sessions repositories.SessionRepository
	mailer   Mailer
	hasher   *password.Hasher
	cfg      *config.Config
	log      *zap.Logger
	now      func() time.Time
}

// NewPasswordResetService creates a new password reset service
func NewPasswordResetService(
	accounts repositories.AccountRepository,
	sessions repositories.SessionRepository,
	mailer Mailer,
	hasher *password.Hasher,
	cfg *config.Config,
	log *zap.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		accounts: accounts,
		sessions: sessions,
		mailer:   mailer,
		hasher:   hasher,
		cfg:      cfg,
		log:      log.Named("password_reset"),
		now:      time.Now,
	}
}

// ForgotPassword sends a reset code when the email belongs to an account.
// The caller always reports the same generic message.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("reset requested for unknown email")
			return nil
		}
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}

	ttl := s.cfg.Security.ResetOTPTTL
	if err := s.accounts.SetResetOTP(ctx, account.ID, password.HashToken(code), s.now().Add(ttl)); err != nil {
		return err
	}

	name := account.Name
	if name == "" {
		name = account.Username
	}
	if err := s.mailer.SendResetCode(ctx, account.Email, name, code, ttl); err != nil {
		// Same response as an unknown email
		s.log.Error("reset code delivery failed", zap.Uint("account_id", account.ID), zap.Error(err))
		return nil
	}

	s.log.Info("reset code sent", zap.Uint("account_id", account.ID))
	return nil
}

// VerifyOTP checks a reset code and returns a short-lived reset token
func (s *PasswordResetService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrResetCodeInvalid
		}
		return "", err
	}

	if account.ResetPasswordOTP == nil || account.ResetPasswordExpires == nil {
		return "", domain.ErrResetNotRequested
	}
	if !account.ResetPasswordExpires.After(s.now()) {
		return "", domain.ErrResetCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(*account.ResetPasswordOTP), []byte(password.HashToken(code))) != 1 {
		s.log.Info("invalid reset code", zap.Uint("account_id", account.ID))
		return "", domain.ErrResetCodeInvalid
	}

	token, err := jwt.GenerateResetToken(account.ID, s.cfg.JWT.ResetSecret, s.cfg.ResetTokenTTL())
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return token, nil
}

// ResetPassword sets a new password and revokes every session of the account.
// The reset code must still be pending and unexpired, so a reset token works
// once and not past the code's lifetime.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := jwt.ValidateResetToken(token, s.cfg.JWT.ResetSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ErrTokenExpired
		}
		return domain.ErrTokenInvalid
	}

	if err := password.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPasswordPolicy, err)
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrTokenInvalid
		}
		return err
	}
	if account.ResetPasswordOTP == nil || account.ResetPasswordExpires == nil {
		return domain.ErrResetNotRequested
	}
	if !account.ResetPasswordExpires.After(s.now()) {
		return domain.ErrResetCodeExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllByAccountID(ctx, account.ID); err != nil {
		return err
	}

	s.log.Info("password reset", zap.Uint("account_id", account.ID))
	return nil
}

// generateResetCode returns a uniformly random 6-digit code
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
