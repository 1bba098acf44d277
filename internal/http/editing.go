package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

// EditController serves the author and book create, update and delete pages.
type EditController struct {
	db    *database.Database
	audit *audit.Service
}

func NewEditController(db *database.Database, auditService *audit.Service) *EditController {
	return &EditController{db: db, audit: auditService}
}

func idKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// --- Authors ---

func (ec *EditController) renderAuthorForm(c *gin.Context, code int, author *entities.Author, form AuthorForm, errs FieldErrors) {
	title := "Create author"
	if author != nil {
		title = "Update author: " + author.String()
	}
	render(c, code, "author_form.html", gin.H{
		"Title":  title,
		"Author": author,
		"Form":   form,
		"Errors": errs,
	})
}

func (ec *EditController) AuthorCreatePage(c *gin.Context) {
	ec.renderAuthorForm(c, http.StatusOK, nil, AuthorForm{}, nil)
}

func (ec *EditController) AuthorCreate(c *gin.Context) {
	var form AuthorForm
	errs := bindForm(c, &form)
	if errs = form.validate(errs); errs != nil {
		ec.renderAuthorForm(c, http.StatusOK, nil, form, errs)
		return
	}

	author := &entities.Author{}
	form.apply(author)
	if err := ec.db.Authors.Create(author); err != nil {
		renderServerError(c, err, "create author")
		return
	}

	ec.audit.LogCreate(auditRequest(c), audit.EntityAuthor, idKey(author.ID), author.String())
	redirect(c, "/authors/"+idKey(author.ID)+"/")
}

func (ec *EditController) AuthorUpdatePage(c *gin.Context) {
	author, ok := loadAuthor(c, ec.db)
	if !ok {
		return
	}
	ec.renderAuthorForm(c, http.StatusOK, author, authorFormFrom(author), nil)
}

func (ec *EditController) AuthorUpdate(c *gin.Context) {
	author, ok := loadAuthor(c, ec.db)
	if !ok {
		return
	}

	var form AuthorForm
	errs := bindForm(c, &form)
	if errs = form.validate(errs); errs != nil {
		ec.renderAuthorForm(c, http.StatusOK, author, form, errs)
		return
	}

	form.apply(author)
	if err := ec.db.Authors.Update(author); err != nil {
		renderServerError(c, err, "update author")
		return
	}

	ec.audit.LogUpdate(auditRequest(c), audit.EntityAuthor, idKey(author.ID), author.String())
	redirect(c, "/authors/"+idKey(author.ID)+"/")
}

func (ec *EditController) AuthorDeletePage(c *gin.Context) {
	author, ok := loadAuthor(c, ec.db)
	if !ok {
		return
	}
	render(c, http.StatusOK, "author_confirm_delete.html", gin.H{
		"Title":  "Delete author: " + author.String(),
		"Author": author,
	})
}

// AuthorDelete removes the author; their books stay with no author.
func (ec *EditController) AuthorDelete(c *gin.Context) {
	author, ok := loadAuthor(c, ec.db)
	if !ok {
		return
	}

	err := ec.db.Authors.Delete(author.ID)
	ec.audit.LogDelete(auditRequest(c), audit.EntityAuthor, idKey(author.ID), author.String(), err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderNotFound(c)
			return
		}
		renderServerError(c, err, "delete author")
		return
	}
	redirect(c, "/authors/")
}

// --- Books ---

// bookChoices are the select options of the book form.
type bookChoices struct {
	Authors   []entities.Author
	Languages []entities.Language
	Genres    []entities.Genre
}

func loadBookChoices(db *database.Database) (*bookChoices, error) {
	var choices bookChoices
	var err error
	if choices.Authors, err = db.Authors.All(); err != nil {
		return nil, err
	}
	if choices.Languages, err = db.Languages.All(); err != nil {
		return nil, err
	}
	if choices.Genres, err = db.Genres.All(); err != nil {
		return nil, err
	}
	return &choices, nil
}

// validateBookForm checks what the field validators cannot: that the
// referenced rows exist and that the ISBN is not taken by another book.
func validateBookForm(db *database.Database, form *BookForm, bookID uint, errs FieldErrors) (FieldErrors, error) {
	if errs == nil {
		errs = FieldErrors{}
	}

	if _, ok := errs["isbn"]; !ok && form.ISBN != "" {
		exists, err := db.Books.ISBNExists(form.ISBN, bookID)
		if err != nil {
			return nil, err
		}
		if exists {
			errs.add("isbn", "Book with this ISBN already exists.")
		}
	}

	if form.AuthorID != 0 {
		if _, err := db.Authors.GetByID(form.AuthorID); errors.Is(err, gorm.ErrRecordNotFound) {
			errs.add("author", "Select a valid choice.")
		} else if err != nil {
			return nil, err
		}
	}
	if form.LanguageID != 0 {
		if _, err := db.Languages.GetByID(form.LanguageID); errors.Is(err, gorm.ErrRecordNotFound) {
			errs.add("language", "Select a valid choice.")
		} else if err != nil {
			return nil, err
		}
	}
	if len(form.GenreIDs) > 0 {
		genres, err := db.Genres.GetByIDs(form.GenreIDs)
		if err != nil {
			return nil, err
		}
		if len(genres) != len(uniqueIDs(form.GenreIDs)) {
			errs.add("genre", "Select a valid choice.")
		}
	}

	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (ec *EditController) renderBookForm(c *gin.Context, book *entities.Book, form BookForm, errs FieldErrors) {
	choices, err := loadBookChoices(ec.db)
	if err != nil {
		renderServerError(c, err, "load book form choices")
		return
	}
	title := "Create book"
	if book != nil {
		title = "Update book: " + book.Title
	}
	render(c, http.StatusOK, "book_form.html", gin.H{
		"Title":   title,
		"Book":    book,
		"Form":    form,
		"Errors":  errs,
		"Choices": choices,
	})
}

func (ec *EditController) BookCreatePage(c *gin.Context) {
	ec.renderBookForm(c, nil, BookForm{}, nil)
}

func (ec *EditController) BookCreate(c *gin.Context) {
	var form BookForm
	errs, err := validateBookForm(ec.db, &form, 0, bindForm(c, &form))
	if err != nil {
		renderServerError(c, err, "validate book")
		return
	}
	if errs != nil {
		ec.renderBookForm(c, nil, form, errs)
		return
	}

	book := &entities.Book{}
	form.apply(book)
	if err := ec.db.Books.Create(book, uniqueIDs(form.GenreIDs)); err != nil {
		renderServerError(c, err, "create book")
		return
	}

	ec.audit.LogCreate(auditRequest(c), audit.EntityBook, idKey(book.ID), book.Title)
	redirect(c, "/books/"+idKey(book.ID)+"/")
}

func (ec *EditController) BookUpdatePage(c *gin.Context) {
	book, ok := loadBook(c, ec.db)
	if !ok {
		return
	}
	ec.renderBookForm(c, book, bookFormFrom(book), nil)
}

func (ec *EditController) BookUpdate(c *gin.Context) {
	book, ok := loadBook(c, ec.db)
	if !ok {
		return
	}

	var form BookForm
	errs, err := validateBookForm(ec.db, &form, book.ID, bindForm(c, &form))
	if err != nil {
		renderServerError(c, err, "validate book")
		return
	}
	if errs != nil {
		ec.renderBookForm(c, book, form, errs)
		return
	}

	form.apply(book)
	if err := ec.db.Books.Update(book, uniqueIDs(form.GenreIDs)); err != nil {
		renderServerError(c, err, "update book")
		return
	}

	ec.audit.LogUpdate(auditRequest(c), audit.EntityBook, idKey(book.ID), book.Title)
	redirect(c, "/books/"+idKey(book.ID)+"/")
}

func (ec *EditController) BookDeletePage(c *gin.Context) {
	book, ok := loadBook(c, ec.db)
	if !ok {
		return
	}
	render(c, http.StatusOK, "book_confirm_delete.html", gin.H{
		"Title": "Delete book: " + book.Title,
		"Book":  book,
	})
}

// BookDelete refuses with 409 while copies of the book exist.
func (ec *EditController) BookDelete(c *gin.Context) {
	book, ok := loadBook(c, ec.db)
	if !ok {
		return
	}

	err := ec.db.Books.Delete(book.ID)
	ec.audit.LogDelete(auditRequest(c), audit.EntityBook, idKey(book.ID), book.Title, err)
	switch {
	case err == nil:
		redirect(c, "/books/")
	case errors.Is(err, books.ErrBookHasInstances):
		render(c, http.StatusConflict, "book_confirm_delete.html", gin.H{
			"Title": "Delete book: " + book.Title,
			"Book":  book,
			"Error": "This book cannot be deleted while copies of it exist.",
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		renderNotFound(c)
	default:
		renderServerError(c, err, "delete book")
	}
}
