// Package authors provides database operations for authors.
//
// Deleting an author keeps their books and clears the books' author reference.
package authors

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles all author database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new authors repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func ordered(db *gorm.DB) *gorm.DB {
	return db.Order("last_name ASC, first_name ASC, id ASC")
}

// Create inserts a new author.
func (r *Repository) Create(author *entities.Author) error {
	if err := r.db.Create(author).Error; err != nil {
		return fmt.Errorf("failed to create author: %w", err)
	}
	return nil
}

// Update saves every editable column, including cleared dates.
func (r *Repository) Update(author *entities.Author) error {
	result := r.db.Model(&entities.Author{}).Where("id = ?", author.ID).Updates(map[string]any{
		"first_name":    author.FirstName,
		"last_name":     author.LastName,
		"date_of_birth": author.DateOfBirth,
		"date_of_death": author.DateOfDeath,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update author: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID retrieves an author with their books ordered by title.
func (r *Repository) GetByID(id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title ASC")
	}).First(&author, id).Error
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// List returns one page of authors in (last name, first name) order.
func (r *Repository) List(limit, offset int) ([]entities.Author, int64, error) {
	var authors []entities.Author
	var total int64

	if err := r.db.Model(&entities.Author{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := ordered(r.db).Limit(limit).Offset(offset).Find(&authors).Error
	return authors, total, err
}

// All returns every author, for select inputs.
func (r *Repository) All() ([]entities.Author, error) {
	var authors []entities.Author
	err := ordered(r.db).Find(&authors).Error
	return authors, err
}

// Count returns the number of authors.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Author{}).Count(&count).Error
	return count, err
}

// Delete removes an author. Books written by the author remain with no author.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach books: %w", err)
		}
		result := tx.Delete(&entities.Author{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete author: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
