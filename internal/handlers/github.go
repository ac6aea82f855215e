package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/middleware"
	"github.com/mdcollab/backend/internal/services"
	"github.com/mdcollab/backend/pkg/utils"
)

type GithubHandler struct {
	Client services.RepoBrowser
	Sync   *services.SyncService
}

func NewGithubHandler(client services.RepoBrowser, sync *services.SyncService) *GithubHandler {
	return &GithubHandler{Client: client, Sync: sync}
}

// Browse lists a repository path so the frontend can preview before import.
func (h *GithubHandler) Browse(c *fiber.Ctx) error {
	owner := c.Query("owner")
	repo := c.Query("repo")
	if owner == "" || repo == "" {
		return utils.Error(c, fiber.StatusBadRequest, "owner and repo are required")
	}

	entries, err := h.Client.Contents(c.Context(), owner, repo, c.Query("path"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadGateway, "failed listing repository contents")
	}
	return utils.Success(c, fiber.StatusOK, entries)
}

// FileContent fetches raw markdown from a download URL for preview.
func (h *GithubHandler) FileContent(c *fiber.Ctx) error {
	url := c.Query("url")
	if url == "" {
		return utils.Error(c, fiber.StatusBadRequest, "url is required")
	}

	content, err := h.Client.Download(c.Context(), url)
	if err != nil {
		return utils.Error(c, fiber.StatusBadGateway, "failed downloading file content")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"content": content})
}

type importRequest struct {
	Owner    string     `json:"owner"`
	Repo     string     `json:"repo"`
	ParentID *uuid.UUID `json:"parentId"`
}

func (h *GithubHandler) Import(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := middleware.GetCurrentUser(c)
	folder, result, err := h.Sync.Import(c.Context(), user, req.Owner, req.Repo, req.ParentID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"folder": folder,
		"result": result,
	})
}

func (h *GithubHandler) SyncFolder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("folderId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	user := middleware.GetCurrentUser(c)
	result, err := h.Sync.SyncFolder(c.Context(), user, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	if result.UpToDate {
		return utils.Message(c, fiber.StatusOK, "folder is already up to date", result)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (h *GithubHandler) SyncFile(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("fileId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	user := middleware.GetCurrentUser(c)
	file, upToDate, err := h.Sync.SyncFile(c.Context(), user, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	if upToDate {
		return utils.Message(c, fiber.StatusOK, "file is already up to date", file)
	}
	return utils.Success(c, fiber.StatusOK, file)
}
