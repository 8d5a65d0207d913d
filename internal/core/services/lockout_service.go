package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/adapters/persistence/repositories"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxLockRetries bounds compare-and-swap retries for one transition
const maxLockRetries = 5

// LockoutPolicy holds the escalation thresholds
type LockoutPolicy struct {
	// ChallengeThreshold is the attempt count from which a CAPTCHA is required
	ChallengeThreshold int
	// LockThreshold is the attempt count that locks the account
	LockThreshold int
	LockDuration  time.Duration
}

// DefaultLockoutPolicy returns CAPTCHA after 2 failures, lock after 3, for 30 minutes
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		ChallengeThreshold: 2,
		LockThreshold:      3,
		LockDuration:       30 * time.Minute,
	}
}

// PolicyFromConfig builds the policy from security settings
func PolicyFromConfig(cfg *config.Config) LockoutPolicy {
	return LockoutPolicy{
		ChallengeThreshold: cfg.Security.CaptchaThreshold,
		LockThreshold:      cfg.Security.LockThreshold,
		LockDuration:       cfg.Security.LockDuration,
	}
}

// FailureOutcome is the state after a failed password check was recorded
type FailureOutcome struct {
	State     domain.LockState
	Remaining int
	// Locked is true when this failure (or a concurrent one) locked the account
	Locked bool
}

// LockoutService owns every transition of the account lock state
type LockoutService struct {
	accounts repositories.AccountRepository
	policy   LockoutPolicy
	log      *zap.Logger
	now      func() time.Time
}

// NewLockoutService creates a new lockout service
func NewLockoutService(accounts repositories.AccountRepository, policy LockoutPolicy, log *zap.Logger) *LockoutService {
	return &LockoutService{
		accounts: accounts,
		policy:   policy,
		log:      log.Named("lockout"),
		now:      time.Now,
	}
}

// Policy returns the active thresholds
func (s *LockoutService) Policy() LockoutPolicy {
	return s.policy
}

// Evaluate releases an expired lock and returns the current state.
// A returned state with IsLockActive(now) true means the login must be refused.
func (s *LockoutService) Evaluate(ctx context.Context, account *models.Account) (domain.LockState, error) {
	for i := 0; i < maxLockRetries; i++ {
		now := s.now()
		current := account.LockState()

		if current.IsLockActive(now) || !current.IsLockExpired(now) {
			return current, nil
		}

		swapped, err := s.accounts.CompareAndSwapLockState(ctx, account.ID, current, domain.Unlocked())
		if err != nil {
			return current, fmt.Errorf("release expired lock: %w", err)
		}
		if swapped {
			account.ApplyLockState(domain.Unlocked())
			metrics.AccountUnlocksTotal.WithLabelValues("expired").Inc()
			s.log.Info("expired lock released",
				zap.Uint("account_id", account.ID),
				zap.Int("previous_attempts", current.LoginAttempts),
			)
			return domain.Unlocked(), nil
		}

		if err := s.reload(ctx, account); err != nil {
			return current, err
		}
	}
	return account.LockState(), domain.ErrLockStateConflict
}

// RecordFailure counts one failed password check. Reaching the lock threshold
// sets the lock flag and expiry in the same write.
func (s *LockoutService) RecordFailure(ctx context.Context, account *models.Account) (*FailureOutcome, error) {
	for i := 0; i < maxLockRetries; i++ {
		now := s.now()
		current := account.LockState()

		// Lost the race to a request that already locked the account
		if current.IsLockActive(now) {
			return &FailureOutcome{State: current, Remaining: 0, Locked: true}, nil
		}

		attempts := current.LoginAttempts
		if current.IsLockExpired(now) {
			attempts = 0
		}

		next := domain.LockState{LoginAttempts: attempts + 1}
		if next.LoginAttempts >= s.policy.LockThreshold {
			// Millisecond precision matches the stored DATETIME(3)
			until := now.Add(s.policy.LockDuration).Truncate(time.Millisecond)
			next.LoginAttempts = s.policy.LockThreshold
			next.AccountLocked = true
			next.LockUntil = &until
		}

		swapped, err := s.accounts.CompareAndSwapLockState(ctx, account.ID, current, next)
		if err != nil {
			return nil, fmt.Errorf("record failed attempt: %w", err)
		}
		if swapped {
			account.ApplyLockState(next)
			out := &FailureOutcome{
				State:     next,
				Remaining: s.remaining(next.LoginAttempts),
				Locked:    next.AccountLocked,
			}
			if next.AccountLocked {
				metrics.AccountLocksTotal.Inc()
				s.log.Warn("account locked",
					zap.Uint("account_id", account.ID),
					zap.Time("lock_until", *next.LockUntil),
				)
			}
			return out, nil
		}

		if err := s.reload(ctx, account); err != nil {
			return nil, err
		}
	}
	return nil, domain.ErrLockStateConflict
}

// RecordSuccess restores the initial state after a correct password. The reset
// swaps from the state the caller observed, so a lock committed by a concurrent
// failure is kept and reported as locked.
func (s *LockoutService) RecordSuccess(ctx context.Context, account *models.Account) (bool, error) {
	for i := 0; i < maxLockRetries; i++ {
		current := account.LockState()
		if current.IsLockActive(s.now()) {
			s.log.Info("correct password after concurrent lock",
				zap.Uint("account_id", account.ID),
				zap.Timep("lock_until", current.LockUntil),
			)
			return true, nil
		}

		swapped, err := s.accounts.CompareAndSwapLockState(ctx, account.ID, current, domain.Unlocked())
		if err != nil {
			return false, fmt.Errorf("reset lock state: %w", err)
		}
		if swapped {
			account.ApplyLockState(domain.Unlocked())
			return false, nil
		}

		if err := s.reload(ctx, account); err != nil {
			return false, err
		}
	}
	return false, domain.ErrLockStateConflict
}

// ForceUnlock clears the lock of another account. Unlocking an account that
// is not locked succeeds without changes.
func (s *LockoutService) ForceUnlock(ctx context.Context, actor *models.Account, accountID uint) (*models.Account, error) {
	if actor == nil || !actor.RoleValue().Can(domain.CapUnlockAccounts) {
		return nil, domain.ErrForbidden
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	wasLocked := account.AccountLocked
	if err := s.accounts.ResetLockState(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("force unlock: %w", err)
	}
	account.ApplyLockState(domain.Unlocked())

	if wasLocked {
		metrics.AccountUnlocksTotal.WithLabelValues("forced").Inc()
	}
	s.log.Info("account unlocked by admin",
		zap.Uint("account_id", account.ID),
		zap.Uint("actor_id", actor.ID),
		zap.Bool("was_locked", wasLocked),
	)
	return account, nil
}

func (s *LockoutService) remaining(attempts int) int {
	if r := s.policy.LockThreshold - attempts; r > 0 {
		return r
	}
	return 0
}

func (s *LockoutService) reload(ctx context.Context, account *models.Account) error {
	fresh, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("reload account: %w", err)
	}
	account.ApplyLockState(fresh.LockState())
	return nil
}
