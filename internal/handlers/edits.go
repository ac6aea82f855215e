package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/middleware"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/internal/services"
	"github.com/mdcollab/backend/pkg/utils"
	"gorm.io/gorm"
)

type EditHandler struct {
	DB       *gorm.DB
	Workflow *services.WorkflowService
}

func NewEditHandler(db *gorm.DB, workflow *services.WorkflowService) *EditHandler {
	return &EditHandler{DB: db, Workflow: workflow}
}

type proposeEditRequest struct {
	FileID     uuid.UUID `json:"fileId"`
	NewContent string    `json:"newContent"`
}

func (h *EditHandler) Propose(c *fiber.Ctx) error {
	var req proposeEditRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.FileID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "fileId is required")
	}

	user := middleware.GetCurrentUser(c)
	edit, err := h.Workflow.Propose(c.Context(), user, req.FileID, req.NewContent)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, edit)
}

func (h *EditHandler) MyEdits(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	edits := []models.Edit{}
	if err := h.DB.
		Preload("File").
		Where("editor_id = ?", user.ID).
		Order("created_at DESC").
		Find(&edits).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing edits")
	}
	return utils.Success(c, fiber.StatusOK, edits)
}

// Pending is the review queue, oldest first.
func (h *EditHandler) Pending(c *fiber.Ctx) error {
	edits := []models.Edit{}
	if err := h.DB.
		Preload("File").
		Preload("Editor").
		Where("status = ?", models.EditStatusPending).
		Order("created_at ASC").
		Find(&edits).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing edits")
	}
	return utils.Success(c, fiber.StatusOK, edits)
}

func (h *EditHandler) Approve(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid edit id")
	}

	user := middleware.GetCurrentUser(c)
	edit, err := h.Workflow.Approve(c.Context(), user, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, edit)
}

type rejectEditRequest struct {
	ReviewNotes string `json:"reviewNotes"`
}

func (h *EditHandler) Reject(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid edit id")
	}

	var req rejectEditRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := middleware.GetCurrentUser(c)
	edit, err := h.Workflow.Reject(c.Context(), user, id, req.ReviewNotes)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, edit)
}
