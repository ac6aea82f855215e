package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileStatus string

const (
	FileStatusDraft    FileStatus = "draft"
	FileStatusApproved FileStatus = "approved"
)

// FileGithubSource tags a file imported from a public GitHub repository.
// DownloadURL being empty means the file is not a mirror.
type FileGithubSource struct {
	Owner        string     `json:"owner,omitempty" gorm:"type:varchar(255)"`
	Repo         string     `json:"repo,omitempty" gorm:"type:varchar(255)"`
	Path         string     `json:"path,omitempty" gorm:"type:text"`
	DownloadURL  string     `json:"downloadUrl,omitempty" gorm:"type:text"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

type File struct {
	BaseModel
	Name     string     `json:"name" gorm:"type:varchar(255);not null"`
	Content  string     `json:"content" gorm:"type:text;not null"`
	AuthorID uuid.UUID  `json:"authorID" gorm:"type:uuid;not null;index"`
	FolderID *uuid.UUID `json:"folderID,omitempty" gorm:"type:uuid;index"`

	// Status is carried for schema fidelity with the upstream data model;
	// every write path sets approved and nothing produces draft.
	Status    FileStatus `json:"status" gorm:"type:varchar(20);not null;default:'approved'"`
	Published bool       `json:"published" gorm:"not null;default:true"`

	GithubSource FileGithubSource `json:"githubSource" gorm:"embedded;embeddedPrefix:github_"`

	Author   User          `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Folder   *Folder       `json:"folder,omitempty" gorm:"foreignKey:FolderID"`
	Versions []FileVersion `json:"versions,omitempty" gorm:"foreignKey:FileID"`
}

// IsMirror reports whether the file was imported from GitHub.
func (f *File) IsMirror() bool {
	return f.GithubSource.DownloadURL != ""
}

// FileVersion is an archived prior content snapshot, captured immediately
// before an overwrite. Rows are append-only; Position orders them oldest
// first.
type FileVersion struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FileID      uuid.UUID `json:"fileID" gorm:"type:uuid;not null;index"`
	Position    int       `json:"position" gorm:"not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	UpdatedByID uuid.UUID `json:"updatedByID" gorm:"type:uuid;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null"`
}

func (v *FileVersion) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (FileVersion) TableName() string {
	return "file_versions"
}
