// Package languages provides database operations for book languages.
//
// Deleting a language clears the reference on its books.
package languages

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles all language database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new languages repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new language.
func (r *Repository) Create(language *entities.Language) error {
	if err := r.db.Create(language).Error; err != nil {
		return fmt.Errorf("failed to create language: %w", err)
	}
	return nil
}

// Rename changes a language's name.
func (r *Repository) Rename(id uint, name string) error {
	result := r.db.Model(&entities.Language{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to rename language: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID retrieves a language.
func (r *Repository) GetByID(id uint) (*entities.Language, error) {
	var language entities.Language
	if err := r.db.First(&language, id).Error; err != nil {
		return nil, err
	}
	return &language, nil
}

// List returns one page of languages ordered by name.
func (r *Repository) List(limit, offset int) ([]entities.Language, int64, error) {
	var languages []entities.Language
	var total int64

	if err := r.db.Model(&entities.Language{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("name ASC").Limit(limit).Offset(offset).Find(&languages).Error
	return languages, total, err
}

// All returns every language ordered by name.
func (r *Repository) All() ([]entities.Language, error) {
	var languages []entities.Language
	err := r.db.Order("name ASC").Find(&languages).Error
	return languages, err
}

// Delete removes a language, leaving its books without one.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("language_id = ?", id).Update("language_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach books: %w", err)
		}
		result := tx.Delete(&entities.Language{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete language: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
