// Package genres provides database operations for book genres.
package genres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles all genre database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new genres repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new genre.
func (r *Repository) Create(genre *entities.Genre) error {
	if err := r.db.Create(genre).Error; err != nil {
		return fmt.Errorf("failed to create genre: %w", err)
	}
	return nil
}

// Rename changes a genre's name.
func (r *Repository) Rename(id uint, name string) error {
	result := r.db.Model(&entities.Genre{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to rename genre: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID retrieves a genre.
func (r *Repository) GetByID(id uint) (*entities.Genre, error) {
	var genre entities.Genre
	if err := r.db.First(&genre, id).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

// GetByIDs retrieves the genres with the given IDs, ignoring unknown IDs.
func (r *Repository) GetByIDs(ids []uint) ([]entities.Genre, error) {
	var genres []entities.Genre
	if len(ids) == 0 {
		return genres, nil
	}
	err := r.db.Where("id IN ?", ids).Order("name ASC").Find(&genres).Error
	return genres, err
}

// List returns one page of genres ordered by name.
func (r *Repository) List(limit, offset int) ([]entities.Genre, int64, error) {
	var genres []entities.Genre
	var total int64

	if err := r.db.Model(&entities.Genre{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("name ASC").Limit(limit).Offset(offset).Find(&genres).Error
	return genres, total, err
}

// All returns every genre ordered by name.
func (r *Repository) All() ([]entities.Genre, error) {
	var genres []entities.Genre
	err := r.db.Order("name ASC").Find(&genres).Error
	return genres, err
}

// Count returns the number of genres.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Genre{}).Count(&count).Error
	return count, err
}

// Delete removes a genre and its links to books.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM book_genres WHERE genre_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to unlink books: %w", err)
		}
		result := tx.Delete(&entities.Genre{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete genre: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
