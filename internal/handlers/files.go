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

type FileHandler struct {
	DB       *gorm.DB
	Files    *services.FileService
	Tree     *services.TreeService
	Workflow *services.WorkflowService
}

func NewFileHandler(db *gorm.DB, files *services.FileService, tree *services.TreeService, workflow *services.WorkflowService) *FileHandler {
	return &FileHandler{DB: db, Files: files, Tree: tree, Workflow: workflow}
}

// ListPublished is the reader surface: published, approved files only.
func (h *FileHandler) ListPublished(c *fiber.Ctx) error {
	files := []models.File{}
	if err := h.DB.
		Preload("Author").
		Where("published = ? AND status = ?", true, models.FileStatusApproved).
		Order("name ASC").
		Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}
	return utils.Success(c, fiber.StatusOK, files)
}

func (h *FileHandler) ListAll(c *fiber.Ctx) error {
	files := []models.File{}
	if err := h.DB.
		Preload("Author").
		Order("name ASC").
		Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}
	return utils.Success(c, fiber.StatusOK, files)
}

func (h *FileHandler) MyFiles(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	files := []models.File{}
	if err := h.DB.
		Where("author_id = ?", user.ID).
		Order("name ASC").
		Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}
	return utils.Success(c, fiber.StatusOK, files)
}

// Get returns a file when it is published or the requester owns it or is an
// admin. Unpublished files stay hidden from everyone else.
func (h *FileHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.Preload("Author").First(&file, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "file not found")
	}

	user := middleware.GetCurrentUser(c)
	if !file.Published && file.AuthorID != user.ID && user.Role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "file is not published")
	}

	return utils.Success(c, fiber.StatusOK, file)
}

type createFileRequest struct {
	Name     string     `json:"name"`
	Content  string     `json:"content"`
	FolderID *uuid.UUID `json:"folderId"`
}

func (h *FileHandler) Create(c *fiber.Ctx) error {
	var req createFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := middleware.GetCurrentUser(c)
	file, err := h.Files.Create(c.Context(), user, services.CreateFileRequest{
		Name:     req.Name,
		Content:  req.Content,
		FolderID: req.FolderID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, file)
}

type saveFileRequest struct {
	Name    *string `json:"name"`
	Content string  `json:"content"`
}

// Save is the direct write path, bypassing review.
func (h *FileHandler) Save(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var req saveFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := middleware.GetCurrentUser(c)
	file, err := h.Workflow.DirectSave(c.Context(), user, id, req.Content, req.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, file)
}

type setPublishRequest struct {
	Published bool `json:"published"`
}

func (h *FileHandler) SetPublish(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var req setPublishRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	return h.updatePublished(c, id, func(models.File) bool { return req.Published })
}

// TogglePublish flips the current flag rather than taking a value.
func (h *FileHandler) TogglePublish(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	return h.updatePublished(c, id, func(file models.File) bool { return !file.Published })
}

func (h *FileHandler) updatePublished(c *fiber.Ctx, id uuid.UUID, next func(models.File) bool) error {
	var file models.File
	if err := h.DB.First(&file, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "file not found")
	}

	value := next(file)
	if err := h.DB.Model(&file).Update("published", value).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating file")
	}
	file.Published = value

	return utils.Success(c, fiber.StatusOK, file)
}

type bulkPublishRequest struct {
	FolderID  *uuid.UUID `json:"folderId"`
	Published bool       `json:"published"`
}

// BulkPublish targets a folder subtree, or root-level files when folderId is
// null or absent.
func (h *FileHandler) BulkPublish(c *fiber.Ctx) error {
	var req bulkPublishRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := middleware.GetCurrentUser(c)
	modified, err := h.Tree.BulkPublish(c.Context(), user, req.FolderID, req.Published)
	if err != nil {
		return respondServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"modifiedCount": modified})
}

func (h *FileHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	user := middleware.GetCurrentUser(c)
	result, err := h.Tree.DeleteFile(c.Context(), user, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Message(c, fiber.StatusOK, "file deleted", result)
}

func (h *FileHandler) Versions(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	versions, err := h.Files.Versions(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, versions)
}
