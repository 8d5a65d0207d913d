package services

import (
	"context"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/jwt"
)

// Note: implementations are AuthService, AdminService and PasswordResetService.
// Handlers and middleware depend on these interfaces.

// Authenticator is the login and session surface used by the HTTP layer
type Authenticator interface {
	Authenticate(ctx context.Context, input LoginInput) (*domain.AuthResult, error)
	RequiresCaptcha(result *domain.AuthResult) bool
	ValidateSession(ctx context.Context, token string) (*jwt.SessionClaims, *models.Account, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, accountID uint) error
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
}

// AdminManager is the account management surface
type AdminManager interface {
	ListAdmins(ctx context.Context, actor *models.Account, input ListAdminsInput) ([]*models.AccountResponse, int64, error)
	GetAdmin(ctx context.Context, actor *models.Account, id uint) (*models.Account, error)
	CreateAdmin(ctx context.Context, actor *models.Account, input CreateAdminInput) (*models.Account, error)
	UpdateAdmin(ctx context.Context, actor *models.Account, id uint, input UpdateAdminInput) (*models.Account, error)
	DeleteAdmin(ctx context.Context, actor *models.Account, id uint) error
	UnlockAdmin(ctx context.Context, actor *models.Account, id uint) (*models.Account, error)
	ChangeOwnPassword(ctx context.Context, actor *models.Account, input ChangePasswordInput) error
}

// PasswordResetter is the forgot / verify / reset surface
type PasswordResetter interface {
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

var (
	_ Authenticator    = (*AuthService)(nil)
	_ AdminManager     = (*AdminService)(nil)
	_ PasswordResetter = (*PasswordResetService)(nil)
)
