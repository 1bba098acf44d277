package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/entities"
)

// nonFieldErrors is the FieldErrors key for messages not tied to one input.
const nonFieldErrors = "__all__"

// FieldErrors maps form field names to the message shown next to them.
type FieldErrors map[string]string

func (fe FieldErrors) add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

// conform applies the mod struct tags before validation.
var conform = modifiers.New()

var registerValidatorsOnce sync.Once

// registerValidators teaches gin's validator the catalog-specific tags and
// makes it report fields by their form names.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("loan_status", func(fl validator.FieldLevel) bool {
			return entities.LoanStatus(fl.Field().String()).IsValid()
		})
		_ = v.RegisterValidation("isbn_chars", func(fl validator.FieldLevel) bool {
			for _, r := range fl.Field().String() {
				if r < '0' || r > '9' {
					return false
				}
			}
			return true
		})
	})
}

// bindForm maps the posted form into dst, trims it and validates it,
// returning per-field messages when validation fails.
func bindForm(c *gin.Context, dst any) FieldErrors {
	if err := c.Request.ParseForm(); err != nil {
		return FieldErrors{nonFieldErrors: "The form could not be read."}
	}
	if err := binding.MapFormWithTag(dst, c.Request.Form, "form"); err != nil {
		return FieldErrors{nonFieldErrors: "Enter valid values in every field."}
	}
	if err := conform.Struct(c.Request.Context(), dst); err != nil {
		return FieldErrors{nonFieldErrors: "The form could not be read."}
	}
	return toFieldErrors(binding.Validator.ValidateStruct(dst))
}

func toFieldErrors(err error) FieldErrors {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{nonFieldErrors: "Enter valid values in every field."}
	}

	errs := FieldErrors{}
	for _, fe := range verrs {
		errs.add(fe.Field(), fieldMessage(fe))
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.Slice {
			return "This field is required."
		}
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "len":
		return fmt.Sprintf("Ensure this value has exactly %s characters.", fe.Param())
	case "datetime":
		return "Enter a valid date."
	case "isbn_chars":
		return "An ISBN may only contain digits."
	case "loan_status":
		return "Select a valid choice."
	}
	return "Enter a valid value."
}

// parseOptionalDate converts a validated YYYY-MM-DD value; empty yields nil.
func parseOptionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := catalog.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func valueOf(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}

// --- Forms ---

// AuthorForm is the author create and update form.
type AuthorForm struct {
	FirstName   string `form:"first_name" mod:"trim" binding:"required,max=100"`
	LastName    string `form:"last_name" mod:"trim" binding:"required,max=100"`
	DateOfBirth string `form:"date_of_birth" mod:"trim" binding:"omitempty,datetime=2006-01-02"`
	DateOfDeath string `form:"date_of_death" mod:"trim" binding:"omitempty,datetime=2006-01-02"`
}

func authorFormFrom(a *entities.Author) AuthorForm {
	return AuthorForm{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		DateOfBirth: catalog.FormatDate(a.DateOfBirth),
		DateOfDeath: catalog.FormatDate(a.DateOfDeath),
	}
}

func (f *AuthorForm) validate(errs FieldErrors) FieldErrors {
	born, died := parseOptionalDate(f.DateOfBirth), parseOptionalDate(f.DateOfDeath)
	if born != nil && died != nil && died.Before(*born) {
		if errs == nil {
			errs = FieldErrors{}
		}
		errs.add("date_of_death", "Date of death cannot be before date of birth.")
	}
	return errs
}

func (f *AuthorForm) apply(a *entities.Author) {
	a.FirstName = f.FirstName
	a.LastName = f.LastName
	a.DateOfBirth = parseOptionalDate(f.DateOfBirth)
	a.DateOfDeath = parseOptionalDate(f.DateOfDeath)
}

// BookForm is the book create and update form. Author and language may be
// left empty; at least one genre is required.
type BookForm struct {
	Title      string `form:"title" mod:"trim" binding:"required,max=200"`
	Summary    string `form:"summary" mod:"trim" binding:"required,max=1000"`
	ISBN       string `form:"isbn" mod:"trim" binding:"required,len=13,isbn_chars"`
	AuthorID   uint   `form:"author"`
	LanguageID uint   `form:"language"`
	GenreIDs   []uint `form:"genre" binding:"required,min=1"`
}

func bookFormFrom(b *entities.Book) BookForm {
	form := BookForm{
		Title:      b.Title,
		Summary:    b.Summary,
		ISBN:       b.ISBN,
		AuthorID:   valueOf(b.AuthorID),
		LanguageID: valueOf(b.LanguageID),
	}
	for _, g := range b.Genres {
		form.GenreIDs = append(form.GenreIDs, g.ID)
	}
	return form
}

// HasGenre lets templates pre-select genre options.
func (f BookForm) HasGenre(id uint) bool {
	for _, g := range f.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

func (f *BookForm) apply(b *entities.Book) {
	b.Title = f.Title
	b.Summary = f.Summary
	b.ISBN = f.ISBN
	b.AuthorID = optionalID(f.AuthorID)
	b.LanguageID = optionalID(f.LanguageID)
}

// RenewForm carries the proposed due-back date.
type RenewForm struct {
	RenewalDate string `form:"renewal_date" mod:"trim" binding:"required,datetime=2006-01-02"`
}

// NameForm serves genres and languages.
type NameForm struct {
	Name string `form:"name" mod:"trim" binding:"required,max=200"`
}

// InstanceForm is the admin form for one book copy.
type InstanceForm struct {
	BookID     uint   `form:"book" binding:"required"`
	Imprint    string `form:"imprint" mod:"trim" binding:"required,max=200"`
	DueBack    string `form:"due_back" mod:"trim" binding:"omitempty,datetime=2006-01-02"`
	Status     string `form:"status" mod:"trim" binding:"required,loan_status"`
	BorrowerID uint   `form:"borrower"`
}

func instanceFormFrom(bi *entities.BookInstance) InstanceForm {
	return InstanceForm{
		BookID:     valueOf(bi.BookID),
		Imprint:    bi.Imprint,
		DueBack:    catalog.FormatDate(bi.DueBack),
		Status:     string(bi.Status),
		BorrowerID: valueOf(bi.BorrowerID),
	}
}

func (f *InstanceForm) apply(bi *entities.BookInstance) {
	bi.BookID = optionalID(f.BookID)
	bi.Imprint = f.Imprint
	bi.DueBack = parseOptionalDate(f.DueBack)
	bi.Status = entities.LoanStatus(f.Status)
	bi.BorrowerID = optionalID(f.BorrowerID)
}
