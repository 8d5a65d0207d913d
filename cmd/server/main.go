package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"tupad-admin/internal/adapters/http/middleware"
	"tupad-admin/internal/adapters/http/routes"
	"tupad-admin/internal/adapters/mail"
	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/adapters/persistence/repositories"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/services"
	"tupad-admin/internal/pkg/logger"
	"tupad-admin/internal/pkg/password"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	_ "tupad-admin/docs" // Swagger docs
)

// @title TUPAD Admin API
// @version 1.0
// @description Admin console API for the TUPAD beneficiary system: login with lockout, password reset and admin management.

// @contact.name API Support

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name auth-token
// @description Session cookie set by /auth/login. A "Bearer" Authorization header is also accepted.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.AppMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	// Connect to database
	db, err := config.ConnectDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("❌ Failed to connect to database", zap.Error(err))
	}
	defer config.CloseDatabase(db) //nolint:errcheck

	if err := models.AutoMigrate(db); err != nil {
		zlog.Fatal("❌ Failed to auto migrate", zap.Error(err))
	}
	zlog.Info("✅ Database migration completed")

	if err := config.NewSeeder(db, cfg, zlog).Run(); err != nil {
		zlog.Warn("⚠️ Seeding failed", zap.Error(err))
	}

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	rateLimitStore := repositories.NewRateLimitStorage(db)

	// Services
	hasher := password.NewHasher(cfg.Security.BcryptCost)
	lockoutService := services.NewLockoutService(accountRepo, services.PolicyFromConfig(cfg), zlog)
	captcha := services.NewCaptchaVerifier(cfg, zlog)
	authService := services.NewAuthService(accountRepo, sessionRepo, lockoutService, captcha, hasher, cfg, zlog)
	adminService := services.NewAdminService(accountRepo, sessionRepo, lockoutService, hasher, zlog)
	resetService := services.NewPasswordResetService(accountRepo, sessionRepo, newMailer(cfg, zlog), hasher, cfg, zlog)

	// Cleanup jobs for sessions, limiter counters and reset codes
	cronService := services.NewCronService(sessionRepo, accountRepo, rateLimitStore, zlog)
	if err := cronService.Start(); err != nil {
		zlog.Fatal("❌ Failed to start cron", zap.Error(err))
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "TUPAD Admin API v1.0",
		ErrorHandler: middleware.CustomErrorHandler(zlog),
	})

	middleware.Setup(app, cfg, rateLimitStore)

	routes.Setup(app, routes.Dependencies{
		DB:      db,
		Config:  cfg,
		Log:     zlog,
		Auth:    authService,
		Admins:  adminService,
		Reset:   resetService,
		Limiter: rateLimitStore,
	})

	// Graceful shutdown
	go gracefulShutdown(app, zlog)

	zlog.Info("🚀 Server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

// newMailer sends reset codes over SMTP when configured; in dev it falls back
// to logging the code
func newMailer(cfg *config.Config, log *zap.Logger) services.Mailer {
	if cfg.Mail.User != "" || !cfg.IsDev() {
		return mail.NewSMTPMailer(cfg.Mail, log)
	}
	log.Warn("EMAIL_USER not set, reset codes will be written to the log")
	return mail.NewLogMailer(log)
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Error("❌ Error during shutdown", zap.Error(err))
	}
	log.Info("✅ Server stopped gracefully")
}
