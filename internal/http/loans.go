package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

// LoansController serves the borrowing pages and the librarian renewal form.
type LoansController struct {
	db       *database.Database
	audit    *audit.Service
	pageSize int
	clock    catalog.Clock
}

func NewLoansController(db *database.Database, auditService *audit.Service, pageSize int, clock catalog.Clock) *LoansController {
	return &LoansController{
		db:       db,
		audit:    auditService,
		pageSize: pageSize,
		clock:    clock,
	}
}

// MyBooks lists the copies the current user has on loan, earliest due first.
func (lc *LoansController) MyBooks(c *gin.Context) {
	userID := auth.GetUserID(c)
	loans, page, ok := paginate(c, lc.pageSize, func(limit, offset int) ([]entities.BookInstance, int64, error) {
		return lc.db.Instances.ListOnLoanByBorrower(userID, limit, offset)
	})
	if !ok {
		return
	}
	render(c, http.StatusOK, "bookinstance_list_borrowed_user.html", gin.H{
		"Title":      "Borrowed books",
		"Loans":      loans,
		"Pagination": page,
		"Today":      catalog.Today(lc.clock()),
	})
}

// Borrowed lists every copy on loan, earliest due first.
func (lc *LoansController) Borrowed(c *gin.Context) {
	loans, page, ok := paginate(c, lc.pageSize, lc.db.Instances.ListOnLoan)
	if !ok {
		return
	}
	render(c, http.StatusOK, "bookinstance_list_all_borrowed.html", gin.H{
		"Title":      "All borrowed books",
		"Loans":      loans,
		"Pagination": page,
		"Today":      catalog.Today(lc.clock()),
	})
}

func (lc *LoansController) loadInstance(c *gin.Context) (*entities.BookInstance, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	instance, err := lc.db.Instances.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderServerError(c, err, "load book instance")
		return nil, false
	}
	return instance, true
}

func (lc *LoansController) renderRenewForm(c *gin.Context, instance *entities.BookInstance, form RenewForm, errs FieldErrors) {
	render(c, http.StatusOK, "book_renew_librarian.html", gin.H{
		"Title":    "Renew: " + instance.String(),
		"Instance": instance,
		"Form":     form,
		"Errors":   errs,
		"Today":    catalog.Today(lc.clock()),
	})
}

// RenewPage shows the renewal form pre-filled three weeks ahead.
func (lc *LoansController) RenewPage(c *gin.Context) {
	instance, ok := lc.loadInstance(c)
	if !ok {
		return
	}
	today := catalog.Today(lc.clock())
	form := RenewForm{RenewalDate: catalog.DefaultRenewalDate(today).Format(catalog.DateLayout)}
	lc.renderRenewForm(c, instance, form, nil)
}

// Renew validates the proposed date and moves the copy's due-back date.
// Only the due-back column is written.
func (lc *LoansController) Renew(c *gin.Context) {
	instance, ok := lc.loadInstance(c)
	if !ok {
		return
	}

	var form RenewForm
	if errs := bindForm(c, &form); errs != nil {
		lc.renderRenewForm(c, instance, form, errs)
		return
	}

	proposed, err := catalog.ParseDate(form.RenewalDate)
	if err != nil {
		lc.renderRenewForm(c, instance, form, FieldErrors{"renewal_date": "Enter a valid date."})
		return
	}

	dueBack, err := catalog.ValidateRenewalDate(proposed, catalog.Today(lc.clock()))
	if err != nil {
		lc.renderRenewForm(c, instance, form, FieldErrors{"renewal_date": capitalize(err.Error())})
		return
	}

	if err := lc.db.Instances.UpdateDueBack(instance.ID, dueBack); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderNotFound(c)
			return
		}
		renderServerError(c, err, "renew book instance")
		return
	}

	title := ""
	if instance.Book != nil {
		title = instance.Book.Title
	}
	lc.audit.LogRenewal(auditRequest(c), instance.ID.String(), title, dueBack.Format(catalog.DateLayout))

	redirect(c, "/borrowed/")
}
