package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification does not use BaseModel: rows are created by workflow
// transitions and only ever flip IsRead before being deleted.
type Notification struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID         `json:"recipientID" gorm:"type:uuid;not null;index"`
	FileID      *uuid.UUID        `json:"fileID,omitempty" gorm:"type:uuid;index"`
	Meta        datatypes.JSONMap `json:"meta,omitempty"`
	IsRead      bool              `json:"isRead" gorm:"not null;default:false"`
	CreatedAt   time.Time         `json:"createdAt" gorm:"not null;index"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}
