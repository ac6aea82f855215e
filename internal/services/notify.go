package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier is the collaborator workflow transitions use to reach a user.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, fileID *uuid.UUID, meta map[string]interface{}) error
}

// Broadcaster pushes an event to a connected client, if any. The websocket
// hub implements it; a nil broadcaster means store-only notifications.
type Broadcaster interface {
	Send(recipientID uuid.UUID, payload interface{})
}

type NotificationService struct {
	DB  *gorm.DB
	Hub Broadcaster
}

func NewNotificationService(db *gorm.DB, hub Broadcaster) *NotificationService {
	return &NotificationService{DB: db, Hub: hub}
}

func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, fileID *uuid.UUID, meta map[string]interface{}) error {
	notification := models.Notification{
		RecipientID: recipientID,
		FileID:      fileID,
		Meta:        datatypes.JSONMap(meta),
	}

	if err := s.DB.WithContext(ctx).Create(&notification).Error; err != nil {
		return err
	}

	if s.Hub != nil {
		s.Hub.Send(recipientID, notification)
	}

	return nil
}

// ListForRecipient returns the user's notifications, newest first.
func (s *NotificationService) ListForRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := s.DB.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	update := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return &NotFoundError{Resource: "notification"}
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	update := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return update.RowsAffected, update.Error
}

func (s *NotificationService) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	result := s.DB.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "notification"}
	}
	return nil
}
