package models

import "github.com/google/uuid"

// FolderGithubSource tags a folder that mirrors a path of a public GitHub
// repository. Repo being empty means the folder is not a mirror.
type FolderGithubSource struct {
	Owner         string  `json:"owner,omitempty" gorm:"type:varchar(255)"`
	Repo          string  `json:"repo,omitempty" gorm:"type:varchar(255)"`
	Path          string  `json:"path,omitempty" gorm:"type:text"`
	LastCommitSHA *string `json:"lastCommitSha,omitempty" gorm:"type:varchar(64)"`
}

type Folder struct {
	BaseModel
	Name     string     `json:"name" gorm:"type:varchar(255);not null;index:idx_folders_author_parent,priority:3"`
	AuthorID uuid.UUID  `json:"authorID" gorm:"type:uuid;not null;index:idx_folders_author_parent,priority:1"`
	ParentID *uuid.UUID `json:"parentID,omitempty" gorm:"type:uuid;index:idx_folders_author_parent,priority:2"`

	GithubSource FolderGithubSource `json:"githubSource" gorm:"embedded;embeddedPrefix:github_"`

	Author User    `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Parent *Folder `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
}

// IsMirror reports whether the folder was imported from GitHub.
func (f *Folder) IsMirror() bool {
	return f.GithubSource.Repo != ""
}
