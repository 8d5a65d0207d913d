package services

import (
	"context"
	"errors"
	"fmt"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/adapters/persistence/repositories"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/jwt"
	"tupad-admin/internal/pkg/metrics"
	"tupad-admin/internal/pkg/password"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthService verifies credentials and manages sessions
type AuthService struct {
	accounts repositories.AccountRepository
	sessions repositories.SessionRepository
	lockout  *LockoutService
	captcha  CaptchaVerifier
	hasher   *password.Hasher
	cfg      *config.Config
	log      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	accounts repositories.AccountRepository,
	sessions repositories.SessionRepository,
	lockout *LockoutService,
	captcha CaptchaVerifier,
	hasher *password.Hasher,
	cfg *config.Config,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		lockout:  lockout,
		captcha:  captcha,
		hasher:   hasher,
		cfg:      cfg,
		log:      log.Named("auth"),
	}
}

// LoginInput represents login input
type LoginInput struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
	RemoteIP     string `json:"-"`
	UserAgent    string `json:"-"`
}

// Authenticate runs one login attempt through the lockout and CAPTCHA policy.
// Rejections are reported in the result; the error is reserved for faults.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (*domain.AuthResult, error) {
	result, err := s.authenticate(ctx, input)
	if err != nil {
		return nil, err
	}
	metrics.AuthAttemptsTotal.WithLabelValues(result.Outcome.String()).Inc()
	return result, nil
}

func (s *AuthService) authenticate(ctx context.Context, input LoginInput) (*domain.AuthResult, error) {
	policy := s.lockout.Policy()

	// 1. Find account (exact, case-sensitive)
	account, err := s.accounts.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("login for unknown username", zap.String("ip", input.RemoteIP))
			return &domain.AuthResult{Outcome: domain.OutcomeUserNotFound}, nil
		}
		metrics.AuthInfraErrorsTotal.WithLabelValues("database").Inc()
		return nil, fmt.Errorf("load account: %w", err)
	}

	// 2. Lock evaluation, releasing expired locks
	state, err := s.lockout.Evaluate(ctx, account)
	if err != nil {
		metrics.AuthInfraErrorsTotal.WithLabelValues("database").Inc()
		return nil, err
	}
	if state.IsLockActive(s.lockout.now()) {
		s.log.Info("login refused, account locked",
			zap.Uint("account_id", account.ID),
			zap.Timep("lock_until", state.LockUntil),
		)
		return &domain.AuthResult{
			Outcome:     domain.OutcomeAccountLocked,
			AccountID:   account.ID,
			LockedUntil: state.LockUntil,
		}, nil
	}

	// 3. CAPTCHA required but missing
	if state.LoginAttempts >= policy.ChallengeThreshold && input.CaptchaToken == "" {
		return &domain.AuthResult{
			Outcome:   domain.OutcomeChallengeRequired,
			AccountID: account.ID,
		}, nil
	}

	// 4. CAPTCHA present
	if input.CaptchaToken != "" {
		ok, err := s.captcha.Verify(ctx, input.CaptchaToken, input.RemoteIP)
		if err != nil {
			metrics.CaptchaVerificationsTotal.WithLabelValues(metrics.CaptchaError).Inc()
			metrics.AuthInfraErrorsTotal.WithLabelValues("captcha").Inc()
			s.log.Error("captcha verification failed", zap.Uint("account_id", account.ID), zap.Error(err))
			return nil, err
		}
		if !ok {
			metrics.CaptchaVerificationsTotal.WithLabelValues(metrics.CaptchaRejected).Inc()
			return &domain.AuthResult{
				Outcome:   domain.OutcomeChallengeFailed,
				AccountID: account.ID,
			}, nil
		}
		metrics.CaptchaVerificationsTotal.WithLabelValues(metrics.CaptchaPassed).Inc()
	}

	// 5. Password check
	stored := account.StoredPassword()
	if stored.IsLegacy() {
		metrics.LegacyPasswordLoginsTotal.Inc()
		s.log.Error("account has an unhashed stored password", zap.Uint("account_id", account.ID))
	}

	if !stored.Matches(s.hasher, input.Password) {
		// 6. Failure
		failure, err := s.lockout.RecordFailure(ctx, account)
		if err != nil {
			metrics.AuthInfraErrorsTotal.WithLabelValues("database").Inc()
			return nil, err
		}
		if failure.Locked {
			return &domain.AuthResult{
				Outcome:     domain.OutcomeAccountLocked,
				AccountID:   account.ID,
				LockedUntil: failure.State.LockUntil,
			}, nil
		}

		result := &domain.AuthResult{
			Outcome:           domain.OutcomeInvalidCredentials,
			AccountID:         account.ID,
			RemainingAttempts: failure.Remaining,
		}
		if failure.Remaining <= 1 {
			result.Warning = domain.LockWarning(failure.Remaining)
		}
		s.log.Info("invalid password",
			zap.Uint("account_id", account.ID),
			zap.Int("remaining_attempts", failure.Remaining),
		)
		return result, nil
	}

	// 7. Success: persist the reset before issuing anything
	locked, err := s.lockout.RecordSuccess(ctx, account)
	if err != nil {
		metrics.AuthInfraErrorsTotal.WithLabelValues("database").Inc()
		return nil, err
	}
	if locked {
		return &domain.AuthResult{
			Outcome:     domain.OutcomeAccountLocked,
			AccountID:   account.ID,
			LockedUntil: account.LockUntil,
		}, nil
	}

	if stored.IsLegacy() {
		s.upgradeLegacyPassword(ctx, account, input.Password)
	}

	session, err := s.issueSession(ctx, account, input)
	if err != nil {
		metrics.AuthInfraErrorsTotal.WithLabelValues("session").Inc()
		return nil, err
	}

	s.log.Info("login succeeded", zap.Uint("account_id", account.ID), zap.String("role", string(account.RoleValue())))

	return &domain.AuthResult{
		Outcome:   domain.OutcomeSuccess,
		Session:   session,
		AccountID: account.ID,
		Role:      account.RoleValue(),
	}, nil
}

// upgradeLegacyPassword replaces a plaintext stored value with a bcrypt hash.
// A failed upgrade does not fail the login; the next login retries it.
func (s *AuthService) upgradeLegacyPassword(ctx context.Context, account *models.Account, plain string) {
	hash, err := s.hasher.Hash(plain)
	if err == nil {
		err = s.accounts.UpdatePassword(ctx, account.ID, hash)
	}
	if err != nil {
		s.log.Error("legacy password upgrade failed", zap.Uint("account_id", account.ID), zap.Error(err))
		return
	}
	account.Password = hash
	s.log.Warn("legacy password upgraded to bcrypt", zap.Uint("account_id", account.ID))
}

func (s *AuthService) issueSession(ctx context.Context, account *models.Account, input LoginInput) (*domain.Session, error) {
	token, expiresAt, err := jwt.GenerateSessionToken(
		account.ID,
		account.Username,
		string(account.RoleValue()),
		uuid.New().String(),
		s.cfg.JWT.Secret,
		s.cfg.SessionTTL(),
	)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	record := &models.Session{
		AccountID: account.ID,
		TokenHash: password.HashToken(token),
		UserAgent: truncate(input.UserAgent, 255),
		IPAddress: truncate(input.RemoteIP, 45),
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &domain.Session{
		Token:     token,
		AccountID: account.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession checks the token signature, its server-side record and
// reloads the account so role changes apply immediately
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*jwt.SessionClaims, *models.Account, error) {
	claims, err := jwt.ValidateSessionToken(token, s.cfg.JWT.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, domain.ErrTokenExpired
		}
		return nil, nil, domain.ErrTokenInvalid
	}

	if _, err := s.sessions.GetActiveByTokenHash(ctx, password.HashToken(token)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrUnauthorized
		}
		return nil, nil, err
	}

	account, err := s.GetAccount(ctx, claims.AccountID)
	if err != nil {
		return nil, nil, err
	}
	return claims, account, nil
}

// Logout revokes one session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.RevokeByTokenHash(ctx, password.HashToken(token)); err != nil {
		return err
	}
	s.log.Info("session revoked")
	return nil
}

// LogoutAll revokes every session of an account
func (s *AuthService) LogoutAll(ctx context.Context, accountID uint) error {
	if err := s.sessions.RevokeAllByAccountID(ctx, accountID); err != nil {
		return err
	}
	s.log.Info("all sessions revoked", zap.Uint("account_id", accountID))
	return nil
}

// GetAccount gets an account by ID
func (s *AuthService) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// RequiresCaptcha reports whether the login form must show a CAPTCHA after result
func (s *AuthService) RequiresCaptcha(result *domain.AuthResult) bool {
	p := s.lockout.Policy()
	return result.RequiresCaptcha(p.ChallengeThreshold, p.LockThreshold)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
