package models

import (
	"time"

	"tupad-admin/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Admin accounts
// ============================================================

// Account represents the admins table
type Account struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Username             string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email                string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Name                 string         `gorm:"size:100" json:"name"`
	Phone                string         `gorm:"size:30" json:"phone"`
	Password             string         `gorm:"size:255;not null" json:"-"`
	Role                 string         `gorm:"size:20;default:'data_encoder'" json:"role"`
	LoginAttempts        int            `gorm:"not null;default:0" json:"login_attempts"`
	AccountLocked        bool           `gorm:"not null;default:false" json:"account_locked"`
	LockUntil            *time.Time     `json:"lock_until"`
	ResetPasswordOTP     *string        `gorm:"column:reset_password_otp;size:64" json:"-"`
	ResetPasswordExpires *time.Time     `gorm:"index" json:"-"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Account) TableName() string {
	return "admins"
}

// LockState returns the embedded lockout state
func (a *Account) LockState() domain.LockState {
	return domain.LockState{
		LoginAttempts: a.LoginAttempts,
		AccountLocked: a.AccountLocked,
		LockUntil:     a.LockUntil,
	}
}

// ApplyLockState copies a lockout state onto the account
func (a *Account) ApplyLockState(s domain.LockState) {
	a.LoginAttempts = s.LoginAttempts
	a.AccountLocked = s.AccountLocked
	a.LockUntil = s.LockUntil
}

// RoleValue returns the normalized role
func (a *Account) RoleValue() domain.Role {
	return domain.ParseRole(a.Role)
}

// StoredPassword returns the password column as a tagged variant
func (a *Account) StoredPassword() domain.StoredPassword {
	return domain.ParseStoredPassword(a.Password)
}

// AccountResponse DTO
type AccountResponse struct {
	ID            uint       `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Name          string     `json:"name,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Role          string     `json:"role"`
	LoginAttempts int        `json:"login_attempts"`
	AccountLocked bool       `json:"account_locked"`
	LockUntil     *time.Time `json:"lock_until"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		Name:          a.Name,
		Phone:         a.Phone,
		Role:          string(a.RoleValue()),
		LoginAttempts: a.LoginAttempts,
		AccountLocked: a.AccountLocked,
		LockUntil:     a.LockUntil,
		CreatedAt:     a.CreatedAt,
	}
}

// ============================================================
// Sessions
// ============================================================

// Session represents the sessions table. Only the token hash is stored.
type Session struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	AccountID uint       `gorm:"index;not null" json:"account_id"`
	TokenHash string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	UserAgent string     `gorm:"size:255" json:"user_agent"`
	IPAddress string     `gorm:"size:45" json:"ip_address"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	Account   Account    `gorm:"foreignKey:AccountID" json:"-"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ============================================================
// Rate limiting
// ============================================================

// RateLimitEntry backs the shared limiter storage
type RateLimitEntry struct {
	Key       string     `gorm:"primaryKey;size:191"`
	Value     []byte     `gorm:"not null"`
	ExpiresAt *time.Time `gorm:"index"`
}

func (RateLimitEntry) TableName() string {
	return "rate_limits"
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Account{},
		&Session{},
		&RateLimitEntry{},
	); err != nil {
		return err
	}

	for _, stmt := range binaryCollationDDL(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// binaryCollationDDL returns the statements that make username comparisons
// case-sensitive. MySQL's default utf8mb4 collation folds case, which would
// match "Admin" to "admin" and reject case variants in the unique index.
// SQLite compares with BINARY already.
func binaryCollationDDL(dialect string) []string {
	if dialect != "mysql" {
		return nil
	}
	return []string{
		"ALTER TABLE admins MODIFY username VARCHAR(50) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL",
	}
}
