package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/services"
	"github.com/mdcollab/backend/pkg/logger"
	"github.com/mdcollab/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}

// respondServiceError translates the service error taxonomy into HTTP
// statuses. Anything untyped is a 500 with a generic message.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case services.IsValidation(err):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case services.IsForbidden(err):
		return utils.Error(c, fiber.StatusForbidden, err.Error())
	case services.IsNotFound(err):
		return utils.Error(c, fiber.StatusNotFound, err.Error())
	case services.IsConflict(err):
		return utils.Error(c, fiber.StatusConflict, err.Error())
	case services.IsInvalidState(err):
		return utils.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	case services.IsUpstream(err):
		return utils.Error(c, fiber.StatusBadGateway, err.Error())
	default:
		logger.Error("internal_error", err, map[string]interface{}{
			"path":       c.Path(),
			"request_id": getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
