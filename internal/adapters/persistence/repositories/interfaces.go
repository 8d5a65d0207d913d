package repositories

import (
	"context"
	"time"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/core/domain"
)

// AccountRepository defines admin account repository interface
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int, search string) ([]*models.Account, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)

	// CompareAndSwapLockState writes next only if the stored attempts, locked
	// flag and lock expiry still equal expected. It reports whether the write
	// happened.
	CompareAndSwapLockState(ctx context.Context, id uint, expected, next domain.LockState) (bool, error)
	// ResetLockState unconditionally restores the initial lock state.
	ResetLockState(ctx context.Context, id uint) error

	UpdatePassword(ctx context.Context, id uint, hash string) error
	SetResetOTP(ctx context.Context, id uint, otpHash string, expiresAt time.Time) error
	ClearResetOTP(ctx context.Context, id uint) error
	ClearExpiredResetOTPs(ctx context.Context, now time.Time) (int64, error)
}

// SessionRepository defines session repository interface
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetActiveByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByAccountID(ctx context.Context, accountID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
