package handlers

import (
	"errors"
	"strings"
	"time"

	"tupad-admin/internal/adapters/http/middleware"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/core/services"
	"tupad-admin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth   services.Authenticator
	admins services.AdminManager
	cfg    *config.Config
	log    *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth services.Authenticator, admins services.AdminManager, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		admins: admins,
		cfg:    cfg,
		log:    log.Named("http.auth"),
	}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

// LoginRejection is the body of a refused login
type LoginRejection struct {
	Success           bool       `json:"success"`
	Error             string     `json:"error"`
	Reason            string     `json:"reason"`
	RequireCaptcha    bool       `json:"require_captcha"`
	RemainingAttempts *int       `json:"remaining_attempts,omitempty"`
	ShowWarning       bool       `json:"show_warning,omitempty"`
	WarningMessage    string     `json:"warning_message,omitempty"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
}

// Login handles admin login
// @Summary Login
// @Description Authenticate with username and password. After repeated failures a CAPTCHA token is required, then the account is locked.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} LoginRejection
// @Failure 423 {object} LoginRejection
// @Failure 503 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return response.BadRequest(c, "Username is required")
	}
	if req.Password == "" {
		return response.BadRequest(c, "Password is required")
	}

	result, err := h.auth.Authenticate(c.UserContext(), services.LoginInput{
		Username:     req.Username,
		Password:     req.Password,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     c.IP(),
		UserAgent:    c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		if errors.Is(err, domain.ErrCaptchaUnavailable) {
			return response.ServiceUnavailable(c, "Verification service unavailable, please try again later")
		}
		h.log.Error("login failed with infrastructure error", zap.Error(err))
		return response.InternalServerError(c, "Login is temporarily unavailable, please try again later")
	}

	rejection := LoginRejection{
		Reason:         result.Outcome.String(),
		RequireCaptcha: h.auth.RequiresCaptcha(result),
	}

	switch result.Outcome {
	case domain.OutcomeSuccess:
		h.setSessionCookie(c, result.Session.Token, result.Session.ExpiresAt)
		account, err := h.auth.GetAccount(c.UserContext(), result.AccountID)
		if err != nil {
			return response.InternalServerError(c, "Failed to load account")
		}
		return response.Success(c, "Login successful", fiber.Map{
			"token":      result.Session.Token,
			"expires_at": result.Session.ExpiresAt,
			"user":       account.ToResponse(),
		})

	case domain.OutcomeInvalidCredentials:
		remaining := result.RemainingAttempts
		rejection.Error = "Invalid username or password"
		rejection.RemainingAttempts = &remaining
		rejection.ShowWarning = result.Warning != ""
		rejection.WarningMessage = result.Warning
		return c.Status(fiber.StatusUnauthorized).JSON(rejection)

	case domain.OutcomeUserNotFound:
		rejection.Error = "Invalid username or password"
		rejection.Reason = domain.OutcomeInvalidCredentials.String()
		return c.Status(fiber.StatusUnauthorized).JSON(rejection)

	case domain.OutcomeChallengeRequired:
		rejection.Error = "Please complete the CAPTCHA verification"
		return c.Status(fiber.StatusUnauthorized).JSON(rejection)

	case domain.OutcomeChallengeFailed:
		rejection.Error = "CAPTCHA verification failed, please try again"
		return c.Status(fiber.StatusUnauthorized).JSON(rejection)

	case domain.OutcomeAccountLocked:
		rejection.Error = "Account is temporarily locked due to too many failed attempts"
		rejection.LockedUntil = result.LockedUntil
		return c.Status(fiber.StatusLocked).JSON(rejection)

	default:
		return response.InternalServerError(c, "Unexpected login result")
	}
}

// Logout handles logout
// @Summary Logout
// @Description Revoke the current session and clear the cookie
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := middleware.SessionToken(c, h.cfg.Cookie.Name); token != "" {
		if err := h.auth.Logout(c.UserContext(), token); err != nil {
			h.log.Warn("session revoke failed", zap.Error(err))
		}
	}

	h.clearSessionCookie(c)
	return response.Success(c, "Logged out successfully", nil)
}

// LogoutAll handles logout from all devices
// @Summary Logout from all devices
// @Description Revoke every session of the current account
// @Tags Auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	account := middleware.CurrentAccount(c)
	if account == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.auth.LogoutAll(c.UserContext(), account.ID); err != nil {
		return response.InternalServerError(c, "Failed to logout from all devices")
	}

	h.clearSessionCookie(c)
	return response.Success(c, "Logged out from all devices", nil)
}

// Me returns the current account
// @Summary Get current account
// @Tags Auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	account := middleware.CurrentAccount(c)
	if account == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	return response.Success(c, "Account retrieved successfully", fiber.Map{
		"user": account.ToResponse(),
	})
}

// ChangePassword changes the current account's password
// @Summary Change own password
// @Tags Auth
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param body body services.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req services.ChangePasswordInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return response.BadRequest(c, "Old and new password are required")
	}

	if err := h.admins.ChangeOwnPassword(c.UserContext(), middleware.CurrentAccount(c), req); err != nil {
		return writeServiceError(c, h.log, err, "Failed to change password")
	}

	return response.Success(c, "Password changed successfully", nil)
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.Cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.Cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}
