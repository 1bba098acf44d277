// Package books provides database operations for catalog books.
//
// A book owns its genre links; deleting a book removes them. Books that still
// have physical copies cannot be deleted.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(123)
package books

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// ErrBookHasInstances is returned when deleting a book that still has copies.
var ErrBookHasInstances = errors.New("book has copies and cannot be deleted")

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a book and links it to the given genres.
func (r *Repository) Create(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		genres, err := loadGenres(tx, genreIDs)
		if err != nil {
			return err
		}
		book.Genres = nil
		if err := tx.Omit("Genres", "Instances", "Author", "Language").Create(book).Error; err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}
		if len(genres) > 0 {
			if err := tx.Model(book).Association("Genres").Append(genres); err != nil {
				return fmt.Errorf("failed to link genres: %w", err)
			}
		}
		book.Genres = genres
		return nil
	})
}

// Update saves the book's columns and replaces its genre links.
func (r *Repository) Update(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.Book{}).Where("id = ?", book.ID).Updates(map[string]any{
			"title":       book.Title,
			"summary":     book.Summary,
			"isbn":        book.ISBN,
			"author_id":   book.AuthorID,
			"language_id": book.LanguageID,
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		genres, err := loadGenres(tx, genreIDs)
		if err != nil {
			return err
		}
		association := tx.Model(book).Association("Genres")
		if len(genres) == 0 {
			err = association.Clear()
		} else {
			err = association.Replace(genres)
		}
		if err != nil {
			return fmt.Errorf("failed to replace genres: %w", err)
		}
		book.Genres = genres
		return nil
	})
}

func loadGenres(tx *gorm.DB, ids []uint) ([]entities.Genre, error) {
	var genres []entities.Genre
	if len(ids) == 0 {
		return genres, nil
	}
	if err := tx.Where("id IN ?", ids).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}
	return genres, nil
}

// GetByID retrieves a book with its author, language, genres and copies.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.
		Preload("Author").
		Preload("Language").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Preload("Instances", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_back ASC, imprint ASC")
		}).
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// List returns one page of books ordered by title, with author and genres loaded.
func (r *Repository) List(limit, offset int) ([]entities.Book, int64, error) {
	var books []entities.Book
	var total int64

	if err := r.db.Model(&entities.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Preload("Author").Preload("Genres", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	}).Order("title ASC, id ASC").Limit(limit).Offset(offset).Find(&books).Error
	return books, total, err
}

// All returns every book ordered by title, for select inputs.
func (r *Repository) All() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title ASC, id ASC").Find(&books).Error
	return books, err
}

// ISBNExists reports whether another book already uses isbn.
// excludeID skips the book being edited; pass 0 on create.
func (r *Repository) ISBNExists(isbn string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&entities.Book{}).Where("isbn = ?", isbn)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of books.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// CountTitleContains counts books whose title contains word, ignoring case.
func (r *Repository) CountTitleContains(word string) (int64, error) {
	var count int64
	pattern := "%" + strings.ToLower(word) + "%"
	err := r.db.Model(&entities.Book{}).Where("LOWER(title) LIKE ?", pattern).Count(&count).Error
	return count, err
}

// Delete removes a book and its genre links. It fails with
// ErrBookHasInstances while any copy still references the book.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var copies int64
		if err := tx.Model(&entities.BookInstance{}).Where("book_id = ?", id).Count(&copies).Error; err != nil {
			return err
		}
		if copies > 0 {
			return ErrBookHasInstances
		}
		if err := tx.Exec("DELETE FROM book_genres WHERE book_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to unlink genres: %w", err)
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
