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

type FolderHandler struct {
	DB      *gorm.DB
	Folders *services.FolderService
	Trees   *services.TreeService
	Archive *services.ArchiveService
}

func NewFolderHandler(db *gorm.DB, folders *services.FolderService, tree *services.TreeService, archive *services.ArchiveService) *FolderHandler {
	return &FolderHandler{DB: db, Folders: folders, Trees: tree, Archive: archive}
}

func (h *FolderHandler) My(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	folders := []models.Folder{}
	if err := h.DB.
		Where("author_id = ?", user.ID).
		Order("name ASC").
		Find(&folders).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing folders")
	}
	return utils.Success(c, fiber.StatusOK, folders)
}

func (h *FolderHandler) ListAll(c *fiber.Ctx) error {
	folders := []models.Folder{}
	if err := h.DB.
		Preload("Author").
		Order("name ASC").
		Find(&folders).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing folders")
	}
	return utils.Success(c, fiber.StatusOK, folders)
}

// Published lists every folder on a path to at least one published file, so
// viewers can navigate without seeing empty private folders.
func (h *FolderHandler) Published(c *fiber.Ctx) error {
	folders, err := h.Trees.PublishedFolderClosure(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, folders)
}

func (h *FolderHandler) Tree(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	tree, err := h.Trees.BuildTree(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, tree)
}

// Get returns the folder together with its immediate subfolders and files.
func (h *FolderHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.Preload("Author").First(&folder, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "folder not found")
	}

	subfolders := []models.Folder{}
	if err := h.DB.Where("parent_id = ?", id).Order("name ASC").Find(&subfolders).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing subfolders")
	}

	files := []models.File{}
	if err := h.DB.Where("folder_id = ?", id).Order("name ASC").Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"folder":     folder,
		"subfolders": subfolders,
		"files":      files,
	})
}

type createFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId"`
}

func (h *FolderHandler) Create(c *fiber.Ctx) error {
	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := middleware.GetCurrentUser(c)
	folder, err := h.Folders.Create(c.Context(), user, services.CreateFolderRequest{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, folder)
}

type renameFolderRequest struct {
	Name string `json:"name"`
}

func (h *FolderHandler) Rename(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var req renameFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := middleware.GetCurrentUser(c)
	folder, err := h.Folders.Rename(c.Context(), user, id, req.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, folder)
}

// Delete removes the folder and everything beneath it.
func (h *FolderHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	user := middleware.GetCurrentUser(c)
	result, err := h.Trees.DeleteFolderRecursive(c.Context(), user, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Message(c, fiber.StatusOK, "folder deleted", result)
}

// Download streams the folder subtree as a ZIP archive.
func (h *FolderHandler) Download(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	user := middleware.GetCurrentUser(c)
	archive, filename, err := h.Archive.BuildZip(c.Context(), user, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(archive)
}
