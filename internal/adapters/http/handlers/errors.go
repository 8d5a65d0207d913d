package handlers

import (
	"errors"
	"strings"

	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// writeServiceError maps domain errors to responses; anything unknown is a 500
func writeServiceError(c *fiber.Ctx, log *zap.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return response.Unauthorized(c, "Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to perform this action")
	case errors.Is(err, domain.ErrAccountNotFound):
		return response.NotFound(c, "Admin not found")
	case errors.Is(err, domain.ErrUsernameTaken):
		return response.Conflict(c, "Username already exists")
	case errors.Is(err, domain.ErrEmailTaken):
		return response.Conflict(c, "Email already exists")
	case errors.Is(err, domain.ErrInvalidRole):
		return response.BadRequest(c, "Role must be system_admin or data_encoder")
	case errors.Is(err, domain.ErrCannotDeleteSelf):
		return response.BadRequest(c, "You cannot delete your own account")
	case errors.Is(err, domain.ErrCannotChangeOwnRole):
		return response.BadRequest(c, "You cannot change your own role")
	case errors.Is(err, domain.ErrOldPasswordWrong):
		return response.BadRequest(c, "Current password is incorrect")
	case errors.Is(err, domain.ErrPasswordPolicy):
		return response.BadRequest(c, policyMessage(err))
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": "))
	case errors.Is(err, domain.ErrResetNotRequested),
		errors.Is(err, domain.ErrResetCodeInvalid):
		return response.BadRequest(c, "Invalid or expired reset code")
	case errors.Is(err, domain.ErrResetCodeExpired):
		return response.BadRequest(c, "Reset code has expired, please request a new one")
	case errors.Is(err, domain.ErrTokenExpired):
		return response.Unauthorized(c, "Reset link has expired, please start again")
	case errors.Is(err, domain.ErrTokenInvalid):
		return response.Unauthorized(c, "Invalid reset token")
	default:
		log.Error(fallback, zap.Error(err))
		return response.InternalServerError(c, fallback)
	}
}

// policyMessage extracts the failed rule from a wrapped password policy error
func policyMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return "Password does not meet requirements"
}
