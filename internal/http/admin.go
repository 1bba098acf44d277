package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/instances"
	"github.com/mrlokans/library/internal/entities"
)

// AdminController is the staff back office: full CRUD over the catalog and
// the audit log.
type AdminController struct {
	db        *database.Database
	audit     *audit.Service
	pageSize  int
	strict    bool
	genres    *nameAdmin
	languages *nameAdmin
}

func NewAdminController(db *database.Database, auditService *audit.Service, pageSize int, strictTransitions bool) *AdminController {
	return &AdminController{
		db:        db,
		audit:     auditService,
		pageSize:  pageSize,
		strict:    strictTransitions,
		genres:    newGenreAdmin(db, auditService, pageSize),
		languages: newLanguageAdmin(db, auditService, pageSize),
	}
}

// RegisterRoutes mounts the admin pages on a group that is already guarded.
func (ac *AdminController) RegisterRoutes(group gin.IRouter) {
	group.GET("/", ac.Index)

	group.GET("/authors/", ac.AuthorList)
	group.GET("/authors/add/", ac.AuthorAddPage)
	group.POST("/authors/add/", ac.AuthorAdd)
	group.GET("/authors/:id/", ac.AuthorEditPage)
	group.POST("/authors/:id/", ac.AuthorEdit)
	group.GET("/authors/:id/delete/", ac.AuthorDeletePage)
	group.POST("/authors/:id/delete/", ac.AuthorDelete)

	group.GET("/books/", ac.BookList)
	group.GET("/books/add/", ac.BookAddPage)
	group.POST("/books/add/", ac.BookAdd)
	group.GET("/books/:id/", ac.BookEditPage)
	group.POST("/books/:id/", ac.BookEdit)
	group.GET("/books/:id/delete/", ac.BookDeletePage)
	group.POST("/books/:id/delete/", ac.BookDelete)

	group.GET("/instances/", ac.InstanceList)
	group.GET("/instances/add/", ac.InstanceAddPage)
	group.POST("/instances/add/", ac.InstanceAdd)
	group.GET("/instances/:id/", ac.InstanceEditPage)
	group.POST("/instances/:id/", ac.InstanceEdit)
	group.GET("/instances/:id/delete/", ac.InstanceDeletePage)
	group.POST("/instances/:id/delete/", ac.InstanceDelete)

	ac.genres.register(group)
	ac.languages.register(group)

	group.GET("/audit/", ac.AuditLog)
}

func (ac *AdminController) Index(c *gin.Context) {
	stats, err := ac.db.Stats()
	if err != nil {
		renderServerError(c, err, "admin stats")
		return
	}
	render(c, http.StatusOK, "admin_index.html", gin.H{
		"Title": "Site administration",
		"Stats": stats,
	})
}

// --- Authors ---

func (ac *AdminController) AuthorList(c *gin.Context) {
	authors, page, ok := paginate(c, ac.pageSize, ac.db.Authors.List)
	if !ok {
		return
	}
	render(c, http.StatusOK, "admin_author_list.html", gin.H{
		"Title":      "Authors",
		"Authors":    authors,
		"Pagination": page,
	})
}

func (ac *AdminController) renderAuthorForm(c *gin.Context, author *entities.Author, form AuthorForm, errs FieldErrors) {
	title := "Add author"
	if author != nil {
		title = "Change author"
	}
	render(c, http.StatusOK, "admin_author_form.html", gin.H{
		"Title":  title,
		"Author": author,
		"Form":   form,
		"Errors": errs,
	})
}

func (ac *AdminController) AuthorAddPage(c *gin.Context) {
	ac.renderAuthorForm(c, nil, AuthorForm{}, nil)
}

func (ac *AdminController) AuthorAdd(c *gin.Context) {
	var form AuthorForm
	errs := bindForm(c, &form)
	if errs = form.validate(errs); errs != nil {
		ac.renderAuthorForm(c, nil, form, errs)
		return
	}

	author := &entities.Author{}
	form.apply(author)
	if err := ac.db.Authors.Create(author); err != nil {
		renderServerError(c, err, "create author")
		return
	}
	ac.audit.LogCreate(auditRequest(c), audit.EntityAuthor, idKey(author.ID), author.String())
	redirect(c, "/admin/authors/")
}

func (ac *AdminController) AuthorEditPage(c *gin.Context) {
	author, ok := loadAuthor(c, ac.db)
	if !ok {
		return
	}
	ac.renderAuthorForm(c, author, authorFormFrom(author), nil)
}

func (ac *AdminController) AuthorEdit(c *gin.Context) {
	author, ok := loadAuthor(c, ac.db)
	if !ok {
		return
	}

	var form AuthorForm
	errs := bindForm(c, &form)
	if errs = form.validate(errs); errs != nil {
		ac.renderAuthorForm(c, author, form, errs)
		return
	}

	form.apply(author)
	if err := ac.db.Authors.Update(author); err != nil {
		renderServerError(c, err, "update author")
		return
	}
	ac.audit.LogUpdate(auditRequest(c), audit.EntityAuthor, idKey(author.ID), author.String())
	redirect(c, "/admin/authors/")
}

func (ac *AdminController) AuthorDeletePage(c *gin.Context) {
	author, ok := loadAuthor(c, ac.db)
	if !ok {
		return
	}
	renderConfirmDelete(c, http.StatusOK, "author", author.String(), "/admin/authors/", "")
}

func (ac *AdminController) AuthorDelete(c *gin.Context) {
	author, ok := loadAuthor(c, ac.db)
	if !ok {
		return
	}
	err := ac.db.Authors.Delete(author.ID)
	ac.audit.LogDelete(auditRequest(c), audit.EntityAuthor, idKey(author.ID), author.String(), err)
	if err != nil {
		renderStoreError(c, err, "delete author")
		return
	}
	redirect(c, "/admin/authors/")
}

// --- Books ---

func (ac *AdminController) BookList(c *gin.Context) {
	list, page, ok := paginate(c, ac.pageSize, ac.db.Books.List)
	if !ok {
		return
	}
	render(c, http.StatusOK, "admin_book_list.html", gin.H{
		"Title":      "Books",
		"Books":      list,
		"Pagination": page,
	})
}

func (ac *AdminController) renderBookForm(c *gin.Context, book *entities.Book, form BookForm, errs FieldErrors, rows []InstanceRow) {
	choices, err := loadBookChoices(ac.db)
	if err != nil {
		renderServerError(c, err, "load book form choices")
		return
	}
	borrowers, err := ac.db.Users.ListUsers()
	if err != nil {
		renderServerError(c, err, "load borrowers")
		return
	}

	title := "Add book"
	if book != nil {
		title = "Change book"
	}
	render(c, http.StatusOK, "admin_book_form.html", gin.H{
		"Title":     title,
		"Book":      book,
		"Form":      form,
		"Errors":    errs,
		"Choices":   choices,
		"Rows":      append(rows, InstanceRow{Form: InstanceForm{Status: string(entities.LoanStatusMaintenance)}}),
		"Borrowers": borrowers,
		"Statuses":  entities.AllLoanStatuses,
	})
}

func existingRows(book *entities.Book) []InstanceRow {
	rows := make([]InstanceRow, 0, len(book.Instances))
	for i := range book.Instances {
		instance := book.Instances[i]
		rows = append(rows, InstanceRow{
			ID:   instance.ID.String(),
			Form: instanceFormFrom(&instance),
		})
	}
	return rows
}

func (ac *AdminController) BookAddPage(c *gin.Context) {
	ac.renderBookForm(c, nil, BookForm{}, nil, nil)
}

func (ac *AdminController) BookAdd(c *gin.Context) {
	var form BookForm
	errs, err := validateBookForm(ac.db, &form, 0, bindForm(c, &form))
	if err != nil {
		renderServerError(c, err, "validate book")
		return
	}
	rows, rowsValid, err := ac.parseInstanceRows(c, 0, nil)
	if err != nil {
		renderServerError(c, err, "validate book copies")
		return
	}
	if errs != nil || !rowsValid {
		ac.renderBookForm(c, nil, form, errs, rows)
		return
	}

	changes, err := planInstanceChanges(rows)
	if err != nil {
		renderNotFound(c)
		return
	}

	book := &entities.Book{}
	form.apply(book)
	err = ac.db.Transaction(func(tx *database.Database) error {
		if err := tx.Books.Create(book, uniqueIDs(form.GenreIDs)); err != nil {
			return err
		}
		return changes.save(tx, book.ID)
	})
	if err != nil {
		renderServerError(c, err, "create book")
		return
	}

	req := auditRequest(c)
	ac.audit.LogCreate(req, audit.EntityBook, idKey(book.ID), book.Title)
	changes.log(ac.audit, req, book.Title)
	redirect(c, "/admin/books/")
}

func (ac *AdminController) BookEditPage(c *gin.Context) {
	book, ok := loadBook(c, ac.db)
	if !ok {
		return
	}
	ac.renderBookForm(c, book, bookFormFrom(book), nil, existingRows(book))
}

// BookEdit saves the book and applies the inline copy edits.
func (ac *AdminController) BookEdit(c *gin.Context) {
	book, ok := loadBook(c, ac.db)
	if !ok {
		return
	}

	var form BookForm
	errs, err := validateBookForm(ac.db, &form, book.ID, bindForm(c, &form))
	if err != nil {
		renderServerError(c, err, "validate book")
		return
	}
	rows, rowsValid, err := ac.parseInstanceRows(c, book.ID, book.Instances)
	if err != nil {
		renderServerError(c, err, "validate book copies")
		return
	}
	if errs != nil || !rowsValid {
		ac.renderBookForm(c, book, form, errs, rows)
		return
	}

	changes, err := planInstanceChanges(rows)
	if err != nil {
		renderNotFound(c)
		return
	}

	// The book and its copies are saved together or not at all.
	form.apply(book)
	err = ac.db.Transaction(func(tx *database.Database) error {
		if err := tx.Books.Update(book, uniqueIDs(form.GenreIDs)); err != nil {
			return err
		}
		return changes.save(tx, book.ID)
	})
	if err != nil {
		renderStoreError(c, err, "update book")
		return
	}

	req := auditRequest(c)
	ac.audit.LogUpdate(req, audit.EntityBook, idKey(book.ID), book.Title)
	changes.log(ac.audit, req, book.Title)
	redirect(c, "/admin/books/")
}

func (ac *AdminController) BookDeletePage(c *gin.Context) {
	book, ok := loadBook(c, ac.db)
	if !ok {
		return
	}
	renderConfirmDelete(c, http.StatusOK, "book", book.Title, "/admin/books/", "")
}

func (ac *AdminController) BookDelete(c *gin.Context) {
	book, ok := loadBook(c, ac.db)
	if !ok {
		return
	}
	err := ac.db.Books.Delete(book.ID)
	ac.audit.LogDelete(auditRequest(c), audit.EntityBook, idKey(book.ID), book.Title, err)
	switch {
	case err == nil:
		redirect(c, "/admin/books/")
	case errors.Is(err, books.ErrBookHasInstances):
		renderConfirmDelete(c, http.StatusConflict, "book", book.Title, "/admin/books/",
			"This book cannot be deleted while copies of it exist. Delete the copies first.")
	default:
		renderStoreError(c, err, "delete book")
	}
}

// --- Book copies ---

func instanceStatusFilter(c *gin.Context) (instances.Filter, gin.H) {
	var filter instances.Filter
	status := c.Query("status")
	if entities.LoanStatus(status).IsValid() {
		filter.Status = entities.LoanStatus(status)
	} else {
		status = ""
	}

	dueBack := c.Query("due_back")
	switch dueBack {
	case "set":
		has := true
		filter.HasDueBack = &has
	case "unset":
		has := false
		filter.HasDueBack = &has
	default:
		dueBack = ""
	}
	return filter, gin.H{"Status": status, "DueBack": dueBack}
}

func (ac *AdminController) InstanceList(c *gin.Context) {
	filter, selected := instanceStatusFilter(c)
	list, page, ok := paginate(c, ac.pageSize, func(limit, offset int) ([]entities.BookInstance, int64, error) {
		return ac.db.Instances.List(filter, limit, offset)
	})
	if !ok {
		return
	}
	render(c, http.StatusOK, "admin_instance_list.html", gin.H{
		"Title":      "Book instances",
		"Instances":  list,
		"Pagination": page,
		"Filter":     selected,
		"Statuses":   entities.AllLoanStatuses,
	})
}

func (ac *AdminController) loadInstance(c *gin.Context) (*entities.BookInstance, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	instance, err := ac.db.Instances.GetByID(id)
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

func (ac *AdminController) renderInstanceForm(c *gin.Context, instance *entities.BookInstance, form InstanceForm, errs FieldErrors) {
	bookList, err := ac.db.Books.All()
	if err != nil {
		renderServerError(c, err, "load books")
		return
	}
	borrowers, err := ac.db.Users.ListUsers()
	if err != nil {
		renderServerError(c, err, "load borrowers")
		return
	}

	title := "Add book instance"
	if instance != nil {
		title = "Change book instance"
	}
	render(c, http.StatusOK, "admin_instance_form.html", gin.H{
		"Title":     title,
		"Instance":  instance,
		"Form":      form,
		"Errors":    errs,
		"Books":     bookList,
		"Borrowers": borrowers,
		"Statuses":  entities.AllLoanStatuses,
	})
}

func (ac *AdminController) InstanceAddPage(c *gin.Context) {
	form := InstanceForm{
		BookID: parseQueryID(c, "book"),
		Status: string(entities.LoanStatusMaintenance),
	}
	ac.renderInstanceForm(c, nil, form, nil)
}

func (ac *AdminController) InstanceAdd(c *gin.Context) {
	var form InstanceForm
	errs, err := ac.validateInstance(&form, nil, bindForm(c, &form))
	if err != nil {
		renderServerError(c, err, "validate book instance")
		return
	}
	if errs != nil {
		ac.renderInstanceForm(c, nil, form, errs)
		return
	}

	instance := &entities.BookInstance{}
	form.apply(instance)
	if err := ac.db.Instances.Create(instance); err != nil {
		renderServerError(c, err, "create book instance")
		return
	}
	ac.audit.LogCreate(auditRequest(c), audit.EntityBookInstance, instance.ID.String(), form.Imprint)
	redirect(c, "/admin/instances/")
}

func (ac *AdminController) InstanceEditPage(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}
	ac.renderInstanceForm(c, instance, instanceFormFrom(instance), nil)
}

func (ac *AdminController) InstanceEdit(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}

	var form InstanceForm
	errs, err := ac.validateInstance(&form, instance, bindForm(c, &form))
	if err != nil {
		renderServerError(c, err, "validate book instance")
		return
	}
	if errs != nil {
		ac.renderInstanceForm(c, instance, form, errs)
		return
	}

	form.apply(instance)
	if err := ac.db.Instances.Update(instance); err != nil {
		renderServerError(c, err, "update book instance")
		return
	}
	ac.audit.LogUpdate(auditRequest(c), audit.EntityBookInstance, instance.ID.String(), form.Imprint)
	redirect(c, "/admin/instances/")
}

func (ac *AdminController) InstanceDeletePage(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}
	renderConfirmDelete(c, http.StatusOK, "book instance", instance.String(), "/admin/instances/", "")
}

func (ac *AdminController) InstanceDelete(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}
	err := ac.db.Instances.Delete(instance.ID)
	ac.audit.LogDelete(auditRequest(c), audit.EntityBookInstance, instance.ID.String(), instance.String(), err)
	if err != nil {
		renderStoreError(c, err, "delete book instance")
		return
	}
	redirect(c, "/admin/instances/")
}

// validateInstance checks references and, when enabled, the status
// transition from current. current is nil for new copies.
func (ac *AdminController) validateInstance(form *InstanceForm, current *entities.BookInstance, errs FieldErrors) (FieldErrors, error) {
	if errs == nil {
		errs = FieldErrors{}
	}

	if form.BookID != 0 {
		if _, err := ac.db.Books.GetByID(form.BookID); errors.Is(err, gorm.ErrRecordNotFound) {
			errs.add("book", "Select a valid choice.")
		} else if err != nil {
			return nil, err
		}
	}
	if form.BorrowerID != 0 {
		if _, err := ac.db.Users.GetUserByID(form.BorrowerID); errors.Is(err, gorm.ErrRecordNotFound) {
			errs.add("borrower", "Select a valid choice.")
		} else if err != nil {
			return nil, err
		}
	}
	if _, bad := errs["status"]; !bad && current != nil {
		if err := catalog.ValidateTransition(current.Status, entities.LoanStatus(form.Status), ac.strict); err != nil {
			errs.add("status", capitalize(err.Error()))
		}
	}

	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

// --- Inline copies on the book page ---

// InstanceRow is one line of the copies table on the admin book page. The
// trailing row with an empty ID adds a copy.
type InstanceRow struct {
	ID     string
	Form   InstanceForm
	Delete bool
	Errors FieldErrors
}

// parseInstanceRows reads the inline copy fields. All field arrays carry one
// entry per row; instance-delete lists the IDs of rows to drop.
func (ac *AdminController) parseInstanceRows(c *gin.Context, bookID uint, existing []entities.BookInstance) ([]InstanceRow, bool, error) {
	ids := c.PostFormArray("instance-id")
	imprints := c.PostFormArray("instance-imprint")
	dueBacks := c.PostFormArray("instance-due_back")
	statuses := c.PostFormArray("instance-status")
	borrowers := c.PostFormArray("instance-borrower")

	deleted := make(map[string]bool)
	for _, id := range c.PostFormArray("instance-delete") {
		deleted[id] = true
	}
	current := make(map[string]*entities.BookInstance, len(existing))
	for i := range existing {
		current[existing[i].ID.String()] = &existing[i]
	}

	at := func(values []string, i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	valid := true
	rows := make([]InstanceRow, 0, len(ids))
	for i, id := range ids {
		borrower := strings.TrimSpace(at(borrowers, i))
		var borrowerID uint64
		badBorrower := false
		if borrower != "" {
			var err error
			if borrowerID, err = strconv.ParseUint(borrower, 10, 32); err != nil {
				badBorrower = true
			}
		}
		row := InstanceRow{
			ID: id,
			Form: InstanceForm{
				BookID:     bookID,
				Imprint:    at(imprints, i),
				DueBack:    at(dueBacks, i),
				Status:     at(statuses, i),
				BorrowerID: uint(borrowerID),
			},
			Delete: id != "" && deleted[id],
		}
		if err := conform.Struct(c.Request.Context(), &row.Form); err != nil {
			return nil, false, err
		}

		// An untouched blank row adds nothing.
		if id == "" && row.Form.Imprint == "" && row.Form.DueBack == "" && borrower == "" {
			continue
		}

		if row.Delete {
			rows = append(rows, row)
			continue
		}

		var prev *entities.BookInstance
		if id != "" {
			var known bool
			if prev, known = current[id]; !known {
				row.Errors = FieldErrors{nonFieldErrors: "This copy does not belong to the book."}
				valid = false
				rows = append(rows, row)
				continue
			}
		}

		fieldErrs := toFieldErrors(binding.Validator.ValidateStruct(&row.Form))
		// The row belongs to the book being saved, which may not exist yet.
		delete(fieldErrs, "book")
		if badBorrower {
			if fieldErrs == nil {
				fieldErrs = FieldErrors{}
			}
			fieldErrs.add("borrower", "Select a valid choice.")
		}
		errs, err := ac.validateInstance(&row.Form, prev, fieldErrs)
		if err != nil {
			return nil, false, err
		}
		if errs != nil {
			row.Errors = errs
			valid = false
		}
		rows = append(rows, row)
	}
	return rows, valid, nil
}

// instanceChanges is the write plan for the inline copy rows of one book.
type instanceChanges struct {
	upserts []*entities.BookInstance
	deletes []uuid.UUID
	created map[*entities.BookInstance]bool
}

func planInstanceChanges(rows []InstanceRow) (*instanceChanges, error) {
	plan := &instanceChanges{created: make(map[*entities.BookInstance]bool)}
	for _, row := range rows {
		var id uuid.UUID
		if row.ID != "" {
			parsed, err := uuid.Parse(row.ID)
			if err != nil {
				return nil, gorm.ErrRecordNotFound
			}
			id = parsed
		}
		if row.Delete {
			plan.deletes = append(plan.deletes, id)
			continue
		}
		instance := &entities.BookInstance{ID: id}
		row.Form.apply(instance)
		plan.created[instance] = id == uuid.Nil
		plan.upserts = append(plan.upserts, instance)
	}
	return plan, nil
}

// save writes the plan inside tx.
func (ic *instanceChanges) save(tx *database.Database, bookID uint) error {
	if len(ic.upserts) == 0 && len(ic.deletes) == 0 {
		return nil
	}
	return tx.Instances.SyncForBook(bookID, ic.upserts, ic.deletes)
}

// log records the committed changes.
func (ic *instanceChanges) log(auditService *audit.Service, req audit.Request, title string) {
	for _, id := range ic.deletes {
		auditService.LogDelete(req, audit.EntityBookInstance, id.String(), title, nil)
	}
	for _, instance := range ic.upserts {
		if ic.created[instance] {
			auditService.LogCreate(req, audit.EntityBookInstance, instance.ID.String(), title)
		} else {
			auditService.LogUpdate(req, audit.EntityBookInstance, instance.ID.String(), title)
		}
	}
}

// --- Audit ---

func (ac *AdminController) AuditLog(c *gin.Context) {
	eventType := entities.AuditEventType(c.Query("type"))
	list, page, ok := paginate(c, ac.pageSize, func(limit, offset int) ([]entities.AuditEvent, int64, error) {
		if eventType == "" {
			return ac.audit.GetEvents(0, limit, offset)
		}
		return ac.audit.GetEventsByType(eventType, 0, limit, offset)
	})
	if !ok {
		return
	}
	render(c, http.StatusOK, "admin_audit.html", gin.H{
		"Title":      "Audit log",
		"Events":     list,
		"Pagination": page,
		"Type":       string(eventType),
		"Types": []entities.AuditEventType{
			entities.AuditEventRenewal,
			entities.AuditEventCreate,
			entities.AuditEventUpdate,
			entities.AuditEventDelete,
			entities.AuditEventAuth,
		},
	})
}
