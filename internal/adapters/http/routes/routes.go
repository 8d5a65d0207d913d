package routes

import (
	"tupad-admin/internal/adapters/http/handlers"
	"tupad-admin/internal/adapters/http/middleware"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	DB      *gorm.DB
	Config  *config.Config
	Log     *zap.Logger
	Auth    services.Authenticator
	Admins  services.AdminManager
	Reset   services.PasswordResetter
	Limiter fiber.Storage
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Dependencies) {
	cfg := deps.Config

	healthHandler := handlers.NewHealthHandler(deps.DB, cfg)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Admins, cfg, deps.Log)
	adminHandler := handlers.NewAdminHandler(deps.Admins, deps.Log)
	passwordHandler := handlers.NewPasswordHandler(deps.Reset, deps.Log)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	requireSession := middleware.AuthMiddleware(deps.Auth, cfg)

	authRoutes := apiV1.Group("/auth", middleware.NoCacheHeaders())
	setupAuthRoutes(authRoutes, authHandler, requireSession, middleware.AuthRateLimiter(cfg, deps.Limiter))

	passwordRoutes := apiV1.Group("/password", middleware.NoCacheHeaders())
	setupPasswordRoutes(passwordRoutes, passwordHandler, middleware.StrictRateLimiter(cfg, deps.Limiter))

	adminRoutes := apiV1.Group("/admins", requireSession)
	setupAdminRoutes(adminRoutes, adminHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, requireSession, limit fiber.Handler) {
	// Public routes
	router.Post("/login", limit, handler.Login)
	router.Post("/logout", limit, handler.Logout)

	// Protected routes
	router.Get("/me", requireSession, handler.Me)
	router.Post("/logout-all", requireSession, handler.LogoutAll)
	router.Put("/password", requireSession, middleware.RequireCapability(domain.CapManageOwnAccount), handler.ChangePassword)
}

// setupPasswordRoutes configures the password reset flow
func setupPasswordRoutes(router fiber.Router, handler *handlers.PasswordHandler, limit fiber.Handler) {
	router.Post("/forgot", limit, handler.Forgot)
	router.Post("/verify-otp", limit, handler.VerifyOTP)
	router.Post("/reset", limit, handler.Reset)
}

// setupAdminRoutes configures admin management routes
func setupAdminRoutes(router fiber.Router, handler *handlers.AdminHandler) {
	view := middleware.RequireCapability(domain.CapViewAdmins)
	manage := middleware.RequireCapability(domain.CapManageAdmins)

	router.Get("/", view, handler.List)
	router.Get("/:id", view, handler.Get)
	router.Post("/", manage, handler.Create)
	router.Put("/:id", manage, handler.Update)
	router.Delete("/:id", manage, handler.Delete)
	router.Post("/:id/unlock", middleware.RequireCapability(domain.CapUnlockAccounts), handler.Unlock)
}
