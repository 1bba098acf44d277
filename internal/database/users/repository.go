// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername("alice")
package users

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a user whose password is already hashed.
func (r *Repository) CreateUser(user *entities.User) error {
	if err := r.db.Omit("Permissions").Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID with their permissions.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Permissions").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username with their permissions.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Permissions").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every user ordered by username.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Preload("Permissions").Order("username ASC").Find(&users).Error
	return users, err
}

// CountUsers returns the number of users.
func (r *Repository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// UpdateRole changes a user's role.
func (r *Repository) UpdateRole(id uint, role entities.UserRole) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// GetPermission looks up a permission by codename.
func (r *Repository) GetPermission(codename string) (*entities.Permission, error) {
	var perm entities.Permission
	if err := r.db.Where("codename = ?", codename).First(&perm).Error; err != nil {
		return nil, err
	}
	return &perm, nil
}

// ListPermissions returns every known permission.
func (r *Repository) ListPermissions() ([]entities.Permission, error) {
	var perms []entities.Permission
	err := r.db.Order("codename ASC").Find(&perms).Error
	return perms, err
}

// AddPermission grants a permission to a user. Granting twice is a no-op.
func (r *Repository) AddPermission(user *entities.User, perm *entities.Permission) error {
	return r.db.Model(user).Association("Permissions").Append(perm)
}

// RemovePermission revokes a permission from a user.
func (r *Repository) RemovePermission(user *entities.User, perm *entities.Permission) error {
	return r.db.Model(user).Association("Permissions").Delete(perm)
}

// DeleteUser removes a user. Copies they borrowed keep no borrower.
func (r *Repository) DeleteUser(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.BookInstance{}).Where("borrower_id = ?", id).Update("borrower_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach loans: %w", err)
		}
		if err := tx.Exec("DELETE FROM user_permissions WHERE user_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to remove permissions: %w", err)
		}
		result := tx.Delete(&entities.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
