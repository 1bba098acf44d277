package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

// namedRow is a genre or language as the shared admin templates see it.
type namedRow struct {
	ID   uint
	Name string
}

// nameAdmin serves list, add, edit and delete pages for records that only
// carry a name. Genres and languages share it.
type nameAdmin struct {
	label    string // singular, for headings
	plural   string
	route    string // relative to the admin group, e.g. "/genres/"
	basePath string // absolute, for links and redirects
	entity   string // audit entity type
	pageSize int
	audit    *audit.Service

	list   func(limit, offset int) ([]namedRow, int64, error)
	get    func(id uint) (*namedRow, error)
	create func(name string) (uint, error)
	rename func(id uint, name string) error
	delete func(id uint) error
}

func newGenreAdmin(db *database.Database, auditService *audit.Service, pageSize int) *nameAdmin {
	return &nameAdmin{
		label:    "genre",
		plural:   "Genres",
		route:    "/genres/",
		basePath: "/admin/genres/",
		entity:   audit.EntityGenre,
		pageSize: pageSize,
		audit:    auditService,
		list: func(limit, offset int) ([]namedRow, int64, error) {
			genres, total, err := db.Genres.List(limit, offset)
			rows := make([]namedRow, 0, len(genres))
			for _, g := range genres {
				rows = append(rows, namedRow{ID: g.ID, Name: g.Name})
			}
			return rows, total, err
		},
		get: func(id uint) (*namedRow, error) {
			g, err := db.Genres.GetByID(id)
			if err != nil {
				return nil, err
			}
			return &namedRow{ID: g.ID, Name: g.Name}, nil
		},
		create: func(name string) (uint, error) {
			g := &entities.Genre{Name: name}
			err := db.Genres.Create(g)
			return g.ID, err
		},
		rename: db.Genres.Rename,
		delete: db.Genres.Delete,
	}
}

func newLanguageAdmin(db *database.Database, auditService *audit.Service, pageSize int) *nameAdmin {
	return &nameAdmin{
		label:    "language",
		plural:   "Languages",
		route:    "/languages/",
		basePath: "/admin/languages/",
		entity:   audit.EntityLanguage,
		pageSize: pageSize,
		audit:    auditService,
		list: func(limit, offset int) ([]namedRow, int64, error) {
			languages, total, err := db.Languages.List(limit, offset)
			rows := make([]namedRow, 0, len(languages))
			for _, l := range languages {
				rows = append(rows, namedRow{ID: l.ID, Name: l.Name})
			}
			return rows, total, err
		},
		get: func(id uint) (*namedRow, error) {
			l, err := db.Languages.GetByID(id)
			if err != nil {
				return nil, err
			}
			return &namedRow{ID: l.ID, Name: l.Name}, nil
		},
		create: func(name string) (uint, error) {
			l := &entities.Language{Name: name}
			err := db.Languages.Create(l)
			return l.ID, err
		},
		rename: db.Languages.Rename,
		delete: db.Languages.Delete,
	}
}

func (na *nameAdmin) register(group gin.IRouter) {
	group.GET(na.route, na.List)
	group.GET(na.route+"add/", na.AddPage)
	group.POST(na.route+"add/", na.Add)
	group.GET(na.route+":id/", na.EditPage)
	group.POST(na.route+":id/", na.Edit)
	group.GET(na.route+":id/delete/", na.DeletePage)
	group.POST(na.route+":id/delete/", na.Delete)
}

func (na *nameAdmin) load(c *gin.Context) (*namedRow, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	row, err := na.get(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderServerError(c, err, "load "+na.label)
		return nil, false
	}
	return row, true
}

func (na *nameAdmin) List(c *gin.Context) {
	rows, page, ok := paginate(c, na.pageSize, na.list)
	if !ok {
		return
	}
	render(c, http.StatusOK, "admin_named_list.html", gin.H{
		"Title":      na.plural,
		"Label":      na.label,
		"BasePath":   na.basePath,
		"Rows":       rows,
		"Pagination": page,
	})
}

func (na *nameAdmin) renderForm(c *gin.Context, row *namedRow, form NameForm, errs FieldErrors) {
	title := "Add " + na.label
	if row != nil {
		title = "Change " + na.label
	}
	render(c, http.StatusOK, "admin_named_form.html", gin.H{
		"Title":    title,
		"Label":    na.label,
		"BasePath": na.basePath,
		"Row":      row,
		"Form":     form,
		"Errors":   errs,
	})
}

func (na *nameAdmin) AddPage(c *gin.Context) {
	na.renderForm(c, nil, NameForm{}, nil)
}

func (na *nameAdmin) Add(c *gin.Context) {
	var form NameForm
	if errs := bindForm(c, &form); errs != nil {
		na.renderForm(c, nil, form, errs)
		return
	}

	id, err := na.create(form.Name)
	if err != nil {
		renderServerError(c, err, "create "+na.label)
		return
	}
	na.audit.LogCreate(auditRequest(c), na.entity, idKey(id), form.Name)
	redirect(c, na.basePath)
}

func (na *nameAdmin) EditPage(c *gin.Context) {
	row, ok := na.load(c)
	if !ok {
		return
	}
	na.renderForm(c, row, NameForm{Name: row.Name}, nil)
}

func (na *nameAdmin) Edit(c *gin.Context) {
	row, ok := na.load(c)
	if !ok {
		return
	}

	var form NameForm
	if errs := bindForm(c, &form); errs != nil {
		na.renderForm(c, row, form, errs)
		return
	}

	if err := na.rename(row.ID, form.Name); err != nil {
		renderServerError(c, err, "rename "+na.label)
		return
	}
	na.audit.LogUpdate(auditRequest(c), na.entity, idKey(row.ID), form.Name)
	redirect(c, na.basePath)
}

func (na *nameAdmin) DeletePage(c *gin.Context) {
	row, ok := na.load(c)
	if !ok {
		return
	}
	renderConfirmDelete(c, http.StatusOK, na.label, row.Name, na.basePath, "")
}

func (na *nameAdmin) Delete(c *gin.Context) {
	row, ok := na.load(c)
	if !ok {
		return
	}

	err := na.delete(row.ID)
	na.audit.LogDelete(auditRequest(c), na.entity, idKey(row.ID), row.Name, err)
	if err != nil {
		renderStoreError(c, err, "delete "+na.label)
		return
	}
	redirect(c, na.basePath)
}

// renderConfirmDelete shows the admin's "are you sure" page. A non-empty
// message explains why a previous attempt failed.
func renderConfirmDelete(c *gin.Context, code int, label, name, backPath, message string) {
	render(c, code, "admin_confirm_delete.html", gin.H{
		"Title":    "Delete " + label,
		"Label":    label,
		"Name":     name,
		"BackPath": backPath,
		"Error":    message,
	})
}
