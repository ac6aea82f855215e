package services

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
)

// ArchiveService bundles a folder subtree into a ZIP, one entry per file,
// laid out by the in-app folder paths.
type ArchiveService struct {
	Tree *TreeService
}

func NewArchiveService(tree *TreeService) *ArchiveService {
	return &ArchiveService{Tree: tree}
}

// BuildZip collects every file under the folder and writes them into an
// in-memory ZIP. Entry names are <path>/<file name> with a .md extension
// added when the stored name lacks one.
func (s *ArchiveService) BuildZip(ctx context.Context, actor *models.User, folderID uuid.UUID) ([]byte, string, error) {
	var root models.Folder
	if err := s.Tree.DB.WithContext(ctx).First(&root, "id = ?", folderID).Error; err != nil {
		return nil, "", &NotFoundError{Resource: "folder"}
	}
	if root.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, "", &ForbiddenError{Message: "you can only download your own folders"}
	}

	collected, err := s.Tree.CollectFiles(ctx, folderID)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)

	for _, item := range collected {
		name := item.File.Name
		if !strings.HasSuffix(name, ".md") {
			name += ".md"
		}

		entry, err := archive.Create(item.Path + "/" + name)
		if err != nil {
			return nil, "", err
		}
		if _, err := entry.Write([]byte(item.File.Content)); err != nil {
			return nil, "", err
		}
	}

	if err := archive.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), root.Name + ".zip", nil
}
