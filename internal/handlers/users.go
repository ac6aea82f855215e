package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mdcollab/backend/internal/middleware"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/logger"
	"github.com/mdcollab/backend/pkg/utils"
	"gorm.io/gorm"
)

// UserHandler is the admin-only user management surface.
type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users := []models.User{}
	if err := h.DB.Order("created_at ASC").Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}
	return utils.Success(c, fiber.StatusOK, users)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	role := models.UserRole(req.Role)
	if !models.IsValidRole(role) {
		return utils.Error(c, fiber.StatusBadRequest, "role must be admin, editor, or viewer")
	}

	current := middleware.GetCurrentUser(c)
	if current.ID == id {
		return utils.Error(c, fiber.StatusBadRequest, "cannot change your own role")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	if err := h.DB.Model(&user).Update("role", role).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating role")
	}
	user.Role = role

	logger.InfoWithUser(current.ID.String(), "user_role_updated", map[string]interface{}{
		"target_user_id": user.ID.String(),
		"role":           string(role),
	})

	return utils.Success(c, fiber.StatusOK, user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	current := middleware.GetCurrentUser(c)
	if current.ID == id {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	logger.InfoWithUser(current.ID.String(), "user_deleted", map[string]interface{}{
		"target_user_id": id.String(),
	})

	return utils.Message(c, fiber.StatusOK, "user deleted", nil)
}
