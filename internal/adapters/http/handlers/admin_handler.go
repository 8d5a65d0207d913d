package handlers

import (
	"strconv"

	"tupad-admin/internal/adapters/http/middleware"
	"tupad-admin/internal/core/services"
	"tupad-admin/internal/pkg/pagination"
	"tupad-admin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles admin account management endpoints
type AdminHandler struct {
	admins services.AdminManager
	log    *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admins services.AdminManager, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admins: admins, log: log.Named("http.admin")}
}

// List lists admin accounts
// @Summary List admins
// @Tags Admins
// @Produce json
// @Security CookieAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param search query string false "Search username, email or name"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admins [get]
func (h *AdminHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	admins, total, err := h.admins.ListAdmins(c.UserContext(), middleware.CurrentAccount(c), services.ListAdminsInput{
		Offset: params.Offset,
		Limit:  params.Limit,
		Search: params.Search,
	})
	if err != nil {
		return writeServiceError(c, h.log, err, "Failed to list admins")
	}

	return response.Success(c, "Admins retrieved successfully", pagination.NewResponse(admins, params, total))
}

// Get returns one admin account
// @Summary Get admin
// @Tags Admins
// @Produce json
// @Security CookieAuth
// @Param id path int true "Admin ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admins/{id} [get]
func (h *AdminHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid admin ID")
	}

	admin, err := h.admins.GetAdmin(c.UserContext(), middleware.CurrentAccount(c), id)
	if err != nil {
		return writeServiceError(c, h.log, err, "Failed to get admin")
	}

	return response.Success(c, "Admin retrieved successfully", admin.ToResponse())
}

// Create creates an admin account
// @Summary Create admin
// @Tags Admins
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param body body services.CreateAdminInput true "Admin data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admins [post]
func (h *AdminHandler) Create(c *fiber.Ctx) error {
	var req services.CreateAdminInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	admin, err := h.admins.CreateAdmin(c.UserContext(), middleware.CurrentAccount(c), req)
	if err != nil {
		return writeServiceError(c, h.log, err, "Failed to create admin")
	}

	return response.Created(c, "Admin created successfully", admin.ToResponse())
}

// Update updates an admin account
// @Summary Update admin
// @Tags Admins
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Admin ID"
// @Param body body services.UpdateAdminInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admins/{id} [put]
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid admin ID")
	}

	var req services.UpdateAdminInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	admin, err := h.admins.UpdateAdmin(c.UserContext(), middleware.CurrentAccount(c), id, req)
	if err != nil {
		return writeServiceError(c, h.log, err, "Failed to update admin")
	}

	return response.Success(c, "Admin updated successfully", admin.ToResponse())
}

// Delete deletes an admin account
// @Summary Delete admin
// @Tags Admins
// @Produce json
// @Security CookieAuth
// @Param id path int true "Admin ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admins/{id} [delete]
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid admin ID")
	}

	if err := h.admins.DeleteAdmin(c.UserContext(), middleware.CurrentAccount(c), id); err != nil {
		return writeServiceError(c, h.log, err, "Failed to delete admin")
	}

	return response.Success(c, "Admin deleted successfully", nil)
}

// Unlock clears the lock of an admin account
// @Summary Unlock admin
// @Description Reset failed attempts and remove the lock. Unlocking an unlocked account succeeds.
// @Tags Admins
// @Produce json
// @Security CookieAuth
// @Param id path int true "Admin ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admins/{id}/unlock [post]
func (h *AdminHandler) Unlock(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid admin ID")
	}

	admin, err := h.admins.UnlockAdmin(c.UserContext(), middleware.CurrentAccount(c), id)
	if err != nil {
		return writeServiceError(c, h.log, err, "Failed to unlock admin")
	}

	return response.Success(c, "Account unlocked successfully", admin.ToResponse())
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
