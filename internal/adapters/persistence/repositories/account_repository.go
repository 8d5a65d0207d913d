package repositories

import (
	"context"
	"time"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/core/domain"

	"gorm.io/gorm"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID gets an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByUsername gets an account by username (exact match)
func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail gets an account by email
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Update saves profile fields. Lock state and password have dedicated writes.
func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).
		Model(account).
		Select("username", "email", "name", "phone", "role").
		Updates(account).Error
}

// Delete soft deletes an account
func (r *accountRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Account{}, id).Error
}

// List lists accounts with pagination and an optional search term
func (r *accountRepository) List(ctx context.Context, offset, limit int, search string) ([]*models.Account, int64, error) {
	var accounts []*models.Account
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Account{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR name LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&accounts).Error; err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

// ExistsByUsername checks if username exists
func (r *accountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *accountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// CountByRole counts accounts holding a role
func (r *accountRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("role = ?", string(role)).Count(&count).Error
	return count, err
}

// CompareAndSwapLockState performs the conditional lock-state write
func (r *accountRepository) CompareAndSwapLockState(ctx context.Context, id uint, expected, next domain.LockState) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Where("login_attempts = ?", expected.LoginAttempts).
		Where("account_locked = ?", expected.AccountLocked)
	if expected.LockUntil == nil {
		query = query.Where("lock_until IS NULL")
	} else {
		query = query.Where("lock_until = ?", *expected.LockUntil)
	}

	result := query.Updates(lockStateColumns(next))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ResetLockState clears attempts and lock
func (r *accountRepository) ResetLockState(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(lockStateColumns(domain.Unlocked())).Error
}

// UpdatePassword stores a new hash and drops any pending reset code
func (r *accountRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password":               hash,
			"reset_password_otp":     nil,
			"reset_password_expires": nil,
		}).Error
}

// SetResetOTP stores a hashed reset code
func (r *accountRepository) SetResetOTP(ctx context.Context, id uint, otpHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_password_otp":     otpHash,
			"reset_password_expires": expiresAt,
		}).Error
}

// ClearResetOTP removes a reset code
func (r *accountRepository) ClearResetOTP(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_password_otp":     nil,
			"reset_password_expires": nil,
		}).Error
}

// ClearExpiredResetOTPs removes reset codes past their expiry (cleanup job)
func (r *accountRepository) ClearExpiredResetOTPs(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("reset_password_expires IS NOT NULL").
		Where("reset_password_expires < ?", now).
		Updates(map[string]interface{}{
			"reset_password_otp":     nil,
			"reset_password_expires": nil,
		})
	return result.RowsAffected, result.Error
}

func lockStateColumns(s domain.LockState) map[string]interface{} {
	return map[string]interface{}{
		"login_attempts": s.LoginAttempts,
		"account_locked": s.AccountLocked,
		"lock_until":     s.LockUntil,
	}
}
