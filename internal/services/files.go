package services

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/logger"
	"gorm.io/gorm"
)

// FileService covers file creation and the version-history helper shared by
// every content-overwrite path.
type FileService struct {
	DB *gorm.DB
}

func NewFileService(db *gorm.DB) *FileService {
	return &FileService{DB: db}
}

type CreateFileRequest struct {
	Name     string
	Content  string
	FolderID *uuid.UUID
}

func (r CreateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Content, validation.Required),
	)
}

// Create makes a new file owned by the actor, always approved, published by
// default, with the initial content recorded as the first version entry.
func (s *FileService) Create(ctx context.Context, actor *models.User, req CreateFileRequest) (*models.File, error) {
	if !actor.Role.CanWrite() {
		return nil, &ForbiddenError{Message: "editor access required"}
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if req.FolderID != nil {
		var folder models.Folder
		if err := s.DB.WithContext(ctx).First(&folder, "id = ?", *req.FolderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, &NotFoundError{Resource: "folder"}
			}
			return nil, err
		}
	}

	file := models.File{
		Name:     req.Name,
		Content:  req.Content,
		AuthorID: actor.ID,
		FolderID: req.FolderID,
		Status:   models.FileStatusApproved,
	}
	file.Published = true

	if err := s.DB.WithContext(ctx).Create(&file).Error; err != nil {
		return nil, err
	}

	if err := pushVersion(ctx, s.DB, &file, actor.ID); err != nil {
		return nil, err
	}

	logger.InfoWithUser(actor.ID.String(), "file_created", map[string]interface{}{
		"file_id":   file.ID.String(),
		"file_name": file.Name,
	})

	return &file, nil
}

// pushVersion appends the file's current content to its version history.
// Callers invoke it before applying the new content, so every version row
// holds a prior state, never the current one (except the initial entry
// written at creation).
func pushVersion(ctx context.Context, db *gorm.DB, file *models.File, updatedBy uuid.UUID) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.FileVersion{}).
		Where("file_id = ?", file.ID).
		Count(&count).Error; err != nil {
		return err
	}

	version := models.FileVersion{
		FileID:      file.ID,
		Position:    int(count) + 1,
		Content:     file.Content,
		UpdatedByID: updatedBy,
	}
	return db.WithContext(ctx).Create(&version).Error
}

// Versions returns the file's archived snapshots, oldest first.
func (s *FileService) Versions(ctx context.Context, fileID uuid.UUID) ([]models.FileVersion, error) {
	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "file"}
		}
		return nil, err
	}

	var versions []models.FileVersion
	if err := s.DB.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("position ASC").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}
