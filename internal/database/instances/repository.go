// Package instances provides database operations for physical book copies.
package instances

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles all book copy database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new instances repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status     entities.LoanStatus
	HasDueBack *bool
}

// Create inserts a copy. The identifier is assigned by the entity hook.
func (r *Repository) Create(instance *entities.BookInstance) error {
	if err := r.db.Omit("Book", "Borrower").Create(instance).Error; err != nil {
		return fmt.Errorf("failed to create book instance: %w", err)
	}
	return nil
}

// Update saves every editable column, including cleared due dates and borrowers.
func (r *Repository) Update(instance *entities.BookInstance) error {
	result := r.db.Model(&entities.BookInstance{}).Where("id = ?", instance.ID).Updates(fields(instance))
	if result.Error != nil {
		return fmt.Errorf("failed to update book instance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func fields(instance *entities.BookInstance) map[string]any {
	return map[string]any{
		"book_id":     instance.BookID,
		"imprint":     instance.Imprint,
		"due_back":    instance.DueBack,
		"status":      instance.Status,
		"borrower_id": instance.BorrowerID,
	}
}

// GetByID retrieves a copy with its book and borrower.
func (r *Repository) GetByID(id uuid.UUID) (*entities.BookInstance, error) {
	var instance entities.BookInstance
	err := r.db.Preload("Book").Preload("Borrower").Where("id = ?", id).First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// ListByBook returns the copies of one book.
func (r *Repository) ListByBook(bookID uint) ([]entities.BookInstance, error) {
	var instances []entities.BookInstance
	err := r.db.Preload("Borrower").Where("book_id = ?", bookID).
		Order("due_back ASC, imprint ASC").Find(&instances).Error
	return instances, err
}

// List returns one page of copies matching filter, ordered by due date.
func (r *Repository) List(filter Filter, limit, offset int) ([]entities.BookInstance, int64, error) {
	var instances []entities.BookInstance
	var total int64

	query := r.db.Model(&entities.BookInstance{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.HasDueBack != nil {
		if *filter.HasDueBack {
			query = query.Where("due_back IS NOT NULL")
		} else {
			query = query.Where("due_back IS NULL")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Book").Preload("Borrower").
		Order("due_back ASC, id ASC").Limit(limit).Offset(offset).Find(&instances).Error
	return instances, total, err
}

// ListOnLoan returns one page of every copy currently on loan, soonest due first.
func (r *Repository) ListOnLoan(limit, offset int) ([]entities.BookInstance, int64, error) {
	return r.List(Filter{Status: entities.LoanStatusOnLoan}, limit, offset)
}

// ListOnLoanByBorrower returns one page of the copies a user has on loan.
func (r *Repository) ListOnLoanByBorrower(borrowerID uint, limit, offset int) ([]entities.BookInstance, int64, error) {
	var instances []entities.BookInstance
	var total int64

	query := r.db.Model(&entities.BookInstance{}).
		Where("borrower_id = ? AND status = ?", borrowerID, entities.LoanStatusOnLoan)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Book").Order("due_back ASC, id ASC").
		Limit(limit).Offset(offset).Find(&instances).Error
	return instances, total, err
}

// UpdateDueBack changes only the due date of a copy.
func (r *Repository) UpdateDueBack(id uuid.UUID, dueBack time.Time) error {
	result := r.db.Model(&entities.BookInstance{}).Where("id = ?", id).UpdateColumn("due_back", dueBack)
	if result.Error != nil {
		return fmt.Errorf("failed to update due date: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a copy.
func (r *Repository) Delete(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&entities.BookInstance{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete book instance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the number of copies.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookInstance{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of copies with the given status.
func (r *Repository) CountByStatus(status entities.LoanStatus) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookInstance{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// SyncForBook applies the inline copy edits from the book admin page in one
// transaction. Copies in upserts with a nil ID are created; the rest are
// updated. Copies listed in deletes are removed.
func (r *Repository) SyncForBook(bookID uint, upserts []*entities.BookInstance, deletes []uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(deletes) > 0 {
			if err := tx.Where("book_id = ? AND id IN ?", bookID, deletes).Delete(&entities.BookInstance{}).Error; err != nil {
				return fmt.Errorf("failed to delete book instances: %w", err)
			}
		}
		for _, instance := range upserts {
			id := bookID
			instance.BookID = &id
			if instance.ID == uuid.Nil {
				if err := tx.Omit("Book", "Borrower").Create(instance).Error; err != nil {
					return fmt.Errorf("failed to create book instance: %w", err)
				}
				continue
			}
			result := tx.Model(&entities.BookInstance{}).
				Where("id = ? AND book_id = ?", instance.ID, bookID).
				Updates(fields(instance))
			if result.Error != nil {
				return fmt.Errorf("failed to update book instance: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
