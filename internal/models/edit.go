package models

import (
	"time"

	"github.com/google/uuid"
)

type EditStatus string

const (
	EditStatusPending  EditStatus = "pending"
	EditStatusApproved EditStatus = "approved"
	EditStatusRejected EditStatus = "rejected"
)

// Edit is a proposed content change awaiting admin review. Once reviewed it
// never transitions again; only ReviewNotes and ReviewedAt are written by the
// review itself.
type Edit struct {
	BaseModel
	FileID   uuid.UUID `json:"fileID" gorm:"type:uuid;not null;index"`
	EditorID uuid.UUID `json:"editorID" gorm:"type:uuid;not null;index"`

	// OriginalContent is the file content snapshotted at proposal time. It is
	// not re-checked at approval time; a direct save landing in between wins
	// silently.
	OriginalContent string `json:"originalContent" gorm:"type:text;not null"`
	NewContent      string `json:"newContent" gorm:"type:text;not null"`

	Status      EditStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ReviewNotes *string    `json:"reviewNotes,omitempty" gorm:"type:text"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`

	File   File `json:"file,omitempty" gorm:"foreignKey:FileID"`
	Editor User `json:"editor,omitempty" gorm:"foreignKey:EditorID"`
}
