package middleware

import (
	"errors"
	"strings"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/core/services"
	"tupad-admin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthMiddleware
const (
	LocalAccount   = "account"
	LocalAccountID = "accountID"
	LocalToken     = "sessionToken"
)

// SessionToken reads the session token from the cookie, then the Authorization header
func SessionToken(c *fiber.Ctx, cookieName string) string {
	if token := c.Cookies(cookieName); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// AuthMiddleware requires a valid, unrevoked session and loads the account
func AuthMiddleware(auth services.Authenticator, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c, cfg.Cookie.Name)
		if token == "" {
			return response.Unauthorized(c, "Authentication required")
		}

		_, account, err := auth.ValidateSession(c.UserContext(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				return response.Unauthorized(c, "Session expired")
			case errors.Is(err, domain.ErrTokenInvalid),
				errors.Is(err, domain.ErrUnauthorized),
				errors.Is(err, domain.ErrAccountNotFound):
				return response.Unauthorized(c, "Invalid session")
			default:
				return response.InternalServerError(c, "Failed to validate session")
			}
		}

		c.Locals(LocalAccount, account)
		c.Locals(LocalAccountID, account.ID)
		c.Locals(LocalToken, token)

		return c.Next()
	}
}

// RequireCapability allows the request only when the account's role grants c
func RequireCapability(capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := CurrentAccount(c)
		if account == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !account.RoleValue().Can(capability) {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}
		return c.Next()
	}
}

// CurrentAccount returns the account loaded by AuthMiddleware
func CurrentAccount(c *fiber.Ctx) *models.Account {
	account, _ := c.Locals(LocalAccount).(*models.Account)
	return account
}
