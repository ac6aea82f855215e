package services

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/logger"
	"gorm.io/gorm"
)

// FolderService covers folder creation and rename. The sibling-name
// uniqueness rule (author + parent + name) is enforced here, at write time
// only; the tree walks trust the stored graph.
type FolderService struct {
	DB *gorm.DB
}

func NewFolderService(db *gorm.DB) *FolderService {
	return &FolderService{DB: db}
}

type CreateFolderRequest struct {
	Name     string
	ParentID *uuid.UUID
}

func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

func (s *FolderService) Create(ctx context.Context, actor *models.User, req CreateFolderRequest) (*models.Folder, error) {
	if !actor.Role.CanWrite() {
		return nil, &ForbiddenError{Message: "editor access required"}
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	// Parent must exist and be owned by the actor; a folder's parent is fixed
	// at creation, which is what keeps the parent relation acyclic.
	if req.ParentID != nil {
		var parent models.Folder
		if err := s.DB.WithContext(ctx).First(&parent, "id = ?", *req.ParentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, &NotFoundError{Resource: "parent folder"}
			}
			return nil, err
		}
		if parent.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
			return nil, &ForbiddenError{Message: "cannot create folder in folder you do not own"}
		}
	}

	taken, err := s.siblingNameTaken(ctx, actor.ID, req.ParentID, req.Name, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ConflictError{Message: "folder with this name already exists in this location"}
	}

	folder := models.Folder{
		Name:     req.Name,
		AuthorID: actor.ID,
		ParentID: req.ParentID,
	}
	if err := s.DB.WithContext(ctx).Create(&folder).Error; err != nil {
		return nil, err
	}

	logger.InfoWithUser(actor.ID.String(), "folder_created", map[string]interface{}{
		"folder_id":   folder.ID.String(),
		"folder_name": folder.Name,
	})

	return &folder, nil
}

func (s *FolderService) Rename(ctx context.Context, actor *models.User, folderID uuid.UUID, name string) (*models.Folder, error) {
	if err := validation.Validate(name, validation.Required, validation.Length(1, 255)); err != nil {
		return nil, &ValidationError{Message: "name: " + err.Error()}
	}

	var folder models.Folder
	if err := s.DB.WithContext(ctx).First(&folder, "id = ?", folderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "folder"}
		}
		return nil, err
	}

	if folder.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, &ForbiddenError{Message: "you can only rename your own folders"}
	}

	taken, err := s.siblingNameTaken(ctx, folder.AuthorID, folder.ParentID, name, &folder.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ConflictError{Message: "folder with this name already exists in this location"}
	}

	if err := s.DB.WithContext(ctx).Model(&folder).Update("name", name).Error; err != nil {
		return nil, err
	}
	folder.Name = name

	return &folder, nil
}

func (s *FolderService) siblingNameTaken(ctx context.Context, authorID uuid.UUID, parentID *uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	query := s.DB.WithContext(ctx).Model(&models.Folder{}).
		Where("author_id = ? AND name = ?", authorID, name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
