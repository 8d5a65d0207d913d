package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/adapters/persistence/repositories"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminService handles admin account management
type AdminService struct {
	accounts repositories.AccountRepository
	sessions repositories.SessionRepository
	lockout  *LockoutService
	hasher   *password.Hasher
	log      *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(
	accounts repositories.AccountRepository,
	sessions repositories.SessionRepository,
	lockout *LockoutService,
	hasher *password.Hasher,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		accounts: accounts,
		sessions: sessions,
		lockout:  lockout,
		hasher:   hasher,
		log:      log.Named("admin"),
	}
}

// ListAdminsInput represents list admins input
type ListAdminsInput struct {
	Offset int
	Limit  int
	Search string
}

// CreateAdminInput represents create admin input
type CreateAdminInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateAdminInput represents update admin input; nil fields are unchanged
type UpdateAdminInput struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Role  *string `json:"role"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ListAdmins lists admin accounts
func (s *AdminService) ListAdmins(ctx context.Context, actor *models.Account, input ListAdminsInput) ([]*models.AccountResponse, int64, error) {
	if err := authorize(actor, domain.CapViewAdmins); err != nil {
		return nil, 0, err
	}

	accounts, total, err := s.accounts.List(ctx, input.Offset, input.Limit, strings.TrimSpace(input.Search))
	if err != nil {
		return nil, 0, err
	}

	out := make([]*models.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.ToResponse())
	}
	return out, total, nil
}

// GetAdmin gets one admin account
func (s *AdminService) GetAdmin(ctx context.Context, actor *models.Account, id uint) (*models.Account, error) {
	if err := authorize(actor, domain.CapViewAdmins); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// CreateAdmin creates an admin account with a hashed password
func (s *AdminService) CreateAdmin(ctx context.Context, actor *models.Account, input CreateAdminInput) (*models.Account, error) {
	if err := authorize(actor, domain.CapManageAdmins); err != nil {
		return nil, err
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Email == "" {
		return nil, fmt.Errorf("%w: username and email are required", domain.ErrInvalidInput)
	}

	role := input.Role
	if role == "" {
		role = string(domain.RoleDataEncoder)
	}
	if !domain.IsValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	if err := password.ValidatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPasswordPolicy, err)
	}

	if exists, err := s.accounts.ExistsByUsername(ctx, input.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrUsernameTaken
	}
	if exists, err := s.accounts.ExistsByEmail(ctx, input.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username: input.Username,
		Email:    input.Email,
		Name:     input.Name,
		Phone:    input.Phone,
		Password: hash,
		Role:     role,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("admin created",
		zap.Uint("account_id", account.ID),
		zap.String("role", role),
		zap.Uint("actor_id", actor.ID),
	)
	return account, nil
}

// UpdateAdmin updates profile fields and role. An admin cannot change their own role.
func (s *AdminService) UpdateAdmin(ctx context.Context, actor *models.Account, id uint, input UpdateAdminInput) (*models.Account, error) {
	if err := authorize(actor, domain.CapManageAdmins); err != nil {
		return nil, err
	}

	account, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidInput)
		}
		if email != account.Email {
			if exists, err := s.accounts.ExistsByEmail(ctx, email); err != nil {
				return nil, err
			} else if exists {
				return nil, domain.ErrEmailTaken
			}
			account.Email = email
		}
	}
	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.Phone != nil {
		account.Phone = *input.Phone
	}
	if input.Role != nil && *input.Role != account.Role {
		if account.ID == actor.ID {
			return nil, domain.ErrCannotChangeOwnRole
		}
		if !domain.IsValidRole(*input.Role) {
			return nil, domain.ErrInvalidRole
		}
		account.Role = *input.Role
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("admin updated", zap.Uint("account_id", account.ID), zap.Uint("actor_id", actor.ID))
	return account, nil
}

// DeleteAdmin removes an admin account and its sessions
func (s *AdminService) DeleteAdmin(ctx context.Context, actor *models.Account, id uint) error {
	if err := authorize(actor, domain.CapManageAdmins); err != nil {
		return err
	}
	if actor.ID == id {
		return domain.ErrCannotDeleteSelf
	}

	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllByAccountID(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("admin deleted", zap.Uint("account_id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

// UnlockAdmin clears the lock of an admin account
func (s *AdminService) UnlockAdmin(ctx context.Context, actor *models.Account, id uint) (*models.Account, error) {
	return s.lockout.ForceUnlock(ctx, actor, id)
}

// ChangeOwnPassword changes the actor's password after checking the old one
func (s *AdminService) ChangeOwnPassword(ctx context.Context, actor *models.Account, input ChangePasswordInput) error {
	if err := authorize(actor, domain.CapManageOwnAccount); err != nil {
		return err
	}

	account, err := s.get(ctx, actor.ID)
	if err != nil {
		return err
	}

	if !account.StoredPassword().Matches(s.hasher, input.OldPassword) {
		return domain.ErrOldPasswordWrong
	}
	if err := password.ValidatePassword(input.NewPassword); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPasswordPolicy, err)
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return err
	}

	s.log.Info("password changed", zap.Uint("account_id", account.ID))
	return nil
}

func (s *AdminService) get(ctx context.Context, id uint) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func authorize(actor *models.Account, c domain.Capability) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	if !actor.RoleValue().Can(c) {
		return domain.ErrForbidden
	}
	return nil
}
