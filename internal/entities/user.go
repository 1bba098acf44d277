package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"     // Superuser: every permission, admin site access
	UserRoleLibrarian UserRole = "librarian" // Staff: admin site access, explicit permissions
	UserRoleMember    UserRole = "member"    // Patron: browse and see own loans
)

// Known permission codenames.
const (
	PermissionMarkReturned = "can_mark_returned"
	PermissionEditCatalog  = "can_edit_catalog"
)

// DefaultPermissions are seeded on startup.
var DefaultPermissions = []Permission{
	{Codename: PermissionMarkReturned, Name: "Set book as returned"},
	{Codename: PermissionEditCatalog, Name: "Create, update and delete authors and books"},
}

type Permission struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Codename string `gorm:"uniqueIndex;size:100;not null" json:"codename"`
	Name     string `gorm:"size:255" json:"name"`
}

func (Permission) TableName() string {
	return "permissions"
}

type User struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email        string       `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string       `gorm:"size:255" json:"-"`
	Role         UserRole     `gorm:"size:20;not null;default:'member'" json:"role"`
	Permissions  []Permission `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user may use the admin site.
func (u *User) IsStaff() bool {
	return u.Role == UserRoleAdmin || u.Role == UserRoleLibrarian
}

// HasPermission checks the user's explicit permissions. Admins hold all of them.
func (u *User) HasPermission(codename string) bool {
	if u.Role == UserRoleAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p.Codename == codename {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role UserRole) bool {
	switch role {
	case UserRoleAdmin, UserRoleLibrarian, UserRoleMember:
		return true
	}
	return false
}
