package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mdcollab/backend/internal/middleware"
	"github.com/mdcollab/backend/internal/services"
	"github.com/mdcollab/backend/pkg/utils"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	notifications, err := h.Notifications.ListForRecipient(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	count, err := h.Notifications.UnreadCount(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"count": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	user := middleware.GetCurrentUser(c)
	if err := h.Notifications.MarkRead(c.Context(), user.ID, id); err != nil {
		return respondServiceError(c, err)
	}
	return utils.Message(c, fiber.StatusOK, "notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	modified, err := h.Notifications.MarkAllRead(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"modifiedCount": modified})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	user := middleware.GetCurrentUser(c)
	if err := h.Notifications.Delete(c.Context(), user.ID, id); err != nil {
		return respondServiceError(c, err)
	}
	return utils.Message(c, fiber.StatusOK, "notification deleted", nil)
}
