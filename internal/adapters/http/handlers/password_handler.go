package handlers

import (
	"strings"

	"tupad-admin/internal/core/services"
	"tupad-admin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const forgotPasswordMessage = "If an account with that email exists, a reset code has been sent"

// PasswordHandler handles the password reset flow
type PasswordHandler struct {
	reset services.PasswordResetter
	log   *zap.Logger
}

// NewPasswordHandler creates a new password handler
func NewPasswordHandler(reset services.PasswordResetter, log *zap.Logger) *PasswordHandler {
	return &PasswordHandler{reset: reset, log: log.Named("http.password")}
}

// ForgotPasswordRequest represents forgot password request body
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest represents verify code request body
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest represents reset password request body
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Forgot sends a reset code
// @Summary Request password reset
// @Description Always returns the same message whether or not the email exists
// @Tags Password
// @Accept json
// @Produce json
// @Param body body ForgotPasswordRequest true "Account email"
// @Success 200 {object} response.Response
// @Router /password/forgot [post]
func (h *PasswordHandler) Forgot(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return response.BadRequest(c, "Email is required")
	}

	if err := h.reset.ForgotPassword(c.UserContext(), email); err != nil {
		return writeServiceError(c, h.log, err, "Failed to process request")
	}

	return response.Success(c, forgotPasswordMessage, nil)
}

// VerifyOTP exchanges a reset code for a reset token
// @Summary Verify reset code
// @Tags Password
// @Accept json
// @Produce json
// @Param body body VerifyOTPRequest true "Email and code"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /password/verify-otp [post]
func (h *PasswordHandler) VerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		return response.BadRequest(c, "Email and code are required")
	}

	token, err := h.reset.VerifyOTP(c.UserContext(), strings.TrimSpace(req.Email), strings.TrimSpace(req.OTP))
	if err != nil {
		return writeServiceError(c, h.log, err, "Failed to verify code")
	}

	return response.Success(c, "Code verified", fiber.Map{"reset_token": token})
}

// Reset sets a new password
// @Summary Reset password
// @Tags Password
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /password/reset [post]
func (h *PasswordHandler) Reset(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Token == "" || req.Password == "" {
		return response.BadRequest(c, "Token and password are required")
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return response.BadRequest(c, "Passwords do not match")
	}

	if err := h.reset.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return writeServiceError(c, h.log, err, "Failed to reset password")
	}

	return response.Success(c, "Password has been reset, please log in", nil)
}
