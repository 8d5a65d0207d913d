package repositories

import (
	"context"
	"errors"
	"time"

	"tupad-admin/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateLimitStorage is a fiber.Storage backed by the rate_limits table, so
// limiter counters are shared between instances. Entries expire lazily on
// read and are swept by DeleteExpired.
type RateLimitStorage struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRateLimitStorage creates a new database-backed limiter storage
func NewRateLimitStorage(db *gorm.DB) *RateLimitStorage {
	return &RateLimitStorage{db: db, now: time.Now}
}

// Get returns the stored value, or nil when absent or expired
func (s *RateLimitStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var entry models.RateLimitEntry
	err := s.db.Where(&models.RateLimitEntry{Key: key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(s.now()) {
		if err := s.Delete(key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return entry.Value, nil
}

// Set upserts a value; exp <= 0 means no expiry
func (s *RateLimitStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	entry := models.RateLimitEntry{Key: key, Value: val}
	if exp > 0 {
		expiresAt := s.now().Add(exp)
		entry.ExpiresAt = &expiresAt
	}

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&entry).Error
}

// Delete removes a key
func (s *RateLimitStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.db.Delete(&models.RateLimitEntry{Key: key}).Error
}

// Reset removes every entry
func (s *RateLimitStorage) Reset() error {
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.RateLimitEntry{}).Error
}

// Close is a no-op; the connection pool is owned by the application
func (s *RateLimitStorage) Close() error {
	return nil
}

// DeleteExpired removes entries whose window has passed (cleanup job)
func (s *RateLimitStorage) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", now).
		Delete(&models.RateLimitEntry{})
	return result.RowsAffected, result.Error
}
