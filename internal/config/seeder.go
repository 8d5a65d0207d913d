package config

import (
	"context"
	"fmt"
	"strings"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/adapters/persistence/repositories"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	accounts repositories.AccountRepository
	cfg      SeedConfig
	log      *zap.Logger

	hasher *password.Hasher
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config, log *zap.Logger) *Seeder {
	return &Seeder{
		accounts: repositories.NewAccountRepository(db),
		cfg:      cfg.Seed,
		log:      log.Named("seeder"),
		hasher:   password.NewHasher(cfg.Security.BcryptCost),
	}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	if err := s.seedSystemAdmin(); err != nil {
		s.log.Warn("⚠️ System admin seeder skipped", zap.Error(err))
	}
	return nil
}

// seedSystemAdmin creates the first system admin from ADMIN_SEED_* when no
// system admin exists yet
func (s *Seeder) seedSystemAdmin() error {
	ctx := context.Background()

	count, err := s.accounts.CountByRole(ctx, domain.RoleSystemAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(s.cfg.Username)
	if username == "" || s.cfg.Password == "" {
		s.log.Warn("No system admin exists and ADMIN_SEED_USERNAME/ADMIN_SEED_PASSWORD are not set")
		return nil
	}
	if err := password.ValidatePassword(s.cfg.Password); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPasswordPolicy, err)
	}

	email := strings.TrimSpace(s.cfg.Email)
	if email == "" {
		email = username + "@localhost"
	}

	hash, err := s.hasher.Hash(s.cfg.Password)
	if err != nil {
		return err
	}

	admin := &models.Account{
		Username: username,
		Email:    email,
		Name:     "System Administrator",
		Password: hash,
		Role:     string(domain.RoleSystemAdmin),
	}
	if err := s.accounts.Create(ctx, admin); err != nil {
		return err
	}

	s.log.Info("✅ System admin created", zap.String("username", admin.Username))
	return nil
}
