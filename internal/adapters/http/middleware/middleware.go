package middleware

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"tupad-admin/internal/config"
	"tupad-admin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Setup configures all middlewares for the application.
// storage backs the rate limiter counters so they are shared between instances.
func Setup(app *fiber.App, cfg *config.Config, storage fiber.Storage) {
	// Recover middleware - catches panics
	app.Use(recover.New())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Security Headers middleware (Helmet)
	app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "SAMEORIGIN",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		PermissionPolicy:          "geolocation=(), microphone=(), camera=()",
	}))

	// General API limiter (per IP)
	app.Use(RateLimiter(storage, cfg.Security.APIRateLimit, cfg.Security.RateLimitWindow, "api", "Too many requests"))

	// Logger middleware
	if cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	// CORS middleware
	if cfg.IsDev() {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     "*",
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
			AllowCredentials: false, // Cannot be true with AllowOrigins: "*"
		}))
	} else {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.GetAllowedOrigins(),
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
			AllowCredentials: true,
		}))
		app.Use(OriginGuard(cfg.GetAllowedOrigins()))
	}
}

// RateLimiter is a fixed-window limiter keyed by client IP
func RateLimiter(storage fiber.Storage, max int, window time.Duration, scope, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		Storage:           storage,
		LimiterMiddleware: limiter.FixedWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return scope + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.TooManyRequests(c, message)
		},
	})
}

// AuthRateLimiter limits login and logout calls
func AuthRateLimiter(cfg *config.Config, storage fiber.Storage) fiber.Handler {
	return RateLimiter(storage, cfg.Security.AuthRateLimit, cfg.Security.RateLimitWindow, "auth", "Too many login attempts, please wait a minute")
}

// StrictRateLimiter limits password reset calls
func StrictRateLimiter(cfg *config.Config, storage fiber.Storage) fiber.Handler {
	return RateLimiter(storage, cfg.Security.StrictRateLimit, cfg.Security.RateLimitWindow, "strict", "Rate limit exceeded, please try again later")
}

// OriginGuard rejects mutating requests whose Origin is neither an allowed
// origin nor the request's own host
func OriginGuard(allowedOrigins string) fiber.Handler {
	allowed := map[string]bool{}
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[strings.TrimRight(o, "/")] = true
		}
	}

	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return c.Next()
		}

		origin := strings.TrimRight(c.Get(fiber.HeaderOrigin), "/")
		if origin != "" {
			if allowed["*"] || allowed[origin] {
				return c.Next()
			}
			if u, err := url.Parse(origin); err == nil && u.Host == c.Hostname() {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Invalid request origin")
	}
}

// CustomErrorHandler handles errors globally
func CustomErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			log.Error("unhandled request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return response.Error(c, code, message)
	}
}
