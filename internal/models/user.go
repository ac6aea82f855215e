package models

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleEditor UserRole = "editor"
	UserRoleViewer UserRole = "viewer"
)

func IsValidRole(role UserRole) bool {
	switch role {
	case UserRoleAdmin, UserRoleEditor, UserRoleViewer:
		return true
	default:
		return false
	}
}

// CanWrite reports whether the role may create or mutate content at all.
// Ownership checks on top of this live in the services.
func (r UserRole) CanWrite() bool {
	return r == UserRoleAdmin || r == UserRoleEditor
}

type User struct {
	BaseModel
	Name         string   `json:"name" gorm:"type:varchar(100);not null"`
	Email        string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"type:text;not null"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:'viewer'"`

	Files   []File   `json:"-" gorm:"foreignKey:AuthorID"`
	Folders []Folder `json:"-" gorm:"foreignKey:AuthorID"`
}
