package services

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/logger"
	"gorm.io/gorm"
)

// WorkflowService is the edit-approval state machine: pending edits move to
// approved or rejected exactly once. DirectSave is the parallel write path
// that bypasses review entirely; the two paths may interleave.
type WorkflowService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewWorkflowService(db *gorm.DB, notifier Notifier) *WorkflowService {
	return &WorkflowService{DB: db, Notifier: notifier}
}

// Propose snapshots the file's current content and records a pending edit.
// The snapshot is never re-validated at review time.
func (s *WorkflowService) Propose(ctx context.Context, actor *models.User, fileID uuid.UUID, newContent string) (*models.Edit, error) {
	if !actor.Role.CanWrite() {
		return nil, &ForbiddenError{Message: "editor access required"}
	}
	if err := validation.Validate(newContent, validation.Required); err != nil {
		return nil, &ValidationError{Message: "newContent: " + err.Error()}
	}

	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "file"}
		}
		return nil, err
	}

	edit := models.Edit{
		FileID:          file.ID,
		EditorID:        actor.ID,
		OriginalContent: file.Content,
		NewContent:      newContent,
		Status:          models.EditStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(&edit).Error; err != nil {
		return nil, err
	}

	logger.InfoWithUser(actor.ID.String(), "edit_proposed", map[string]interface{}{
		"edit_id": edit.ID.String(),
		"file_id": file.ID.String(),
	})

	return &edit, nil
}

// Approve applies a pending edit: the file's current content goes onto the
// version history and the proposed content replaces it. Whatever was written
// between proposal and approval is what the history records as superseded.
func (s *WorkflowService) Approve(ctx context.Context, actor *models.User, editID uuid.UUID) (*models.Edit, error) {
	if actor.Role != models.UserRoleAdmin {
		return nil, &ForbiddenError{Message: "admin access required"}
	}

	var edit models.Edit
	if err := s.DB.WithContext(ctx).First(&edit, "id = ?", editID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "edit"}
		}
		return nil, err
	}

	if edit.Status != models.EditStatusPending {
		return nil, &InvalidStateError{Message: "edit has already been reviewed"}
	}

	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", edit.FileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "file"}
		}
		return nil, err
	}

	if err := pushVersion(ctx, s.DB, &file, edit.EditorID); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&file).Updates(map[string]interface{}{
		"content": edit.NewContent,
		"status":  models.FileStatusApproved,
	}).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&edit).Updates(map[string]interface{}{
		"status":      models.EditStatusApproved,
		"reviewed_at": now,
	}).Error; err != nil {
		return nil, err
	}
	edit.Status = models.EditStatusApproved
	edit.ReviewedAt = &now

	s.notify(ctx, edit.EditorID, file, map[string]interface{}{
		"type":     "edit_approved",
		"editId":   edit.ID.String(),
		"fileId":   file.ID.String(),
		"fileName": file.Name,
	})

	logger.InfoWithUser(actor.ID.String(), "edit_approved", map[string]interface{}{
		"edit_id": edit.ID.String(),
		"file_id": file.ID.String(),
	})

	return &edit, nil
}

// Reject closes a pending edit without touching the file.
func (s *WorkflowService) Reject(ctx context.Context, actor *models.User, editID uuid.UUID, notes string) (*models.Edit, error) {
	if actor.Role != models.UserRoleAdmin {
		return nil, &ForbiddenError{Message: "admin access required"}
	}

	var edit models.Edit
	if err := s.DB.WithContext(ctx).First(&edit, "id = ?", editID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "edit"}
		}
		return nil, err
	}

	if edit.Status != models.EditStatusPending {
		return nil, &InvalidStateError{Message: "edit has already been reviewed"}
	}

	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", edit.FileID).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      models.EditStatusRejected,
		"reviewed_at": now,
	}
	if notes != "" {
		updates["review_notes"] = notes
	}
	if err := s.DB.WithContext(ctx).Model(&edit).Updates(updates).Error; err != nil {
		return nil, err
	}
	edit.Status = models.EditStatusRejected
	edit.ReviewedAt = &now
	if notes != "" {
		edit.ReviewNotes = &notes
	}

	s.notify(ctx, edit.EditorID, file, map[string]interface{}{
		"type":        "edit_rejected",
		"editId":      edit.ID.String(),
		"fileId":      edit.FileID.String(),
		"fileName":    file.Name,
		"reviewNotes": notes,
	})

	logger.InfoWithUser(actor.ID.String(), "edit_rejected", map[string]interface{}{
		"edit_id": edit.ID.String(),
		"file_id": edit.FileID.String(),
	})

	return &edit, nil
}

// DirectSave overwrites file content (and optionally the name) without going
// through review. Owner or admin only.
func (s *WorkflowService) DirectSave(ctx context.Context, actor *models.User, fileID uuid.UUID, content string, name *string) (*models.File, error) {
	if !actor.Role.CanWrite() {
		return nil, &ForbiddenError{Message: "editor access required"}
	}
	if err := validation.Validate(content, validation.Required); err != nil {
		return nil, &ValidationError{Message: "content: " + err.Error()}
	}

	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "file"}
		}
		return nil, err
	}

	if file.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, &ForbiddenError{Message: "you can only save your own files"}
	}

	if err := pushVersion(ctx, s.DB, &file, actor.ID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"content": content}
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if err := s.DB.WithContext(ctx).Model(&file).Updates(updates).Error; err != nil {
		return nil, err
	}

	file.Content = content
	if name != nil && *name != "" {
		file.Name = *name
	}

	logger.InfoWithUser(actor.ID.String(), "file_saved", map[string]interface{}{
		"file_id": file.ID.String(),
	})

	return &file, nil
}

func (s *WorkflowService) notify(ctx context.Context, recipientID uuid.UUID, file models.File, meta map[string]interface{}) {
	if s.Notifier == nil {
		return
	}

	var fileID *uuid.UUID
	if file.ID != uuid.Nil {
		id := file.ID
		fileID = &id
	}

	// Notification delivery is fire-and-forget; review outcomes do not fail
	// on a broken notification path.
	if err := s.Notifier.Notify(ctx, recipientID, fileID, meta); err != nil {
		logger.Error("notification_failed", err, map[string]interface{}{
			"recipient_id": recipientID.String(),
		})
	}
}
