package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

// CatalogController serves the public browsing pages.
type CatalogController struct {
	db       *database.Database
	sessions *auth.SessionManager
	pageSize int
	clock    catalog.Clock
}

func NewCatalogController(db *database.Database, sessions *auth.SessionManager, pageSize int, clock catalog.Clock) *CatalogController {
	return &CatalogController{
		db:       db,
		sessions: sessions,
		pageSize: pageSize,
		clock:    clock,
	}
}

// Index renders the dashboard counters and bumps the session visit counter.
func (cc *CatalogController) Index(c *gin.Context) {
	stats, err := cc.db.Stats()
	if err != nil {
		renderServerError(c, err, "catalog stats")
		return
	}

	visits := 1
	if cc.sessions != nil {
		visits = cc.sessions.NextVisit(c.Request.Context())
	}

	render(c, http.StatusOK, "index.html", gin.H{
		"Title":     "Local Library Home",
		"Stats":     stats,
		"NumVisits": visits,
	})
}

func (cc *CatalogController) BookList(c *gin.Context) {
	books, page, ok := paginate(c, cc.pageSize, cc.db.Books.List)
	if !ok {
		return
	}
	render(c, http.StatusOK, "book_list.html", gin.H{
		"Title":      "Book List",
		"Books":      books,
		"Pagination": page,
	})
}

func (cc *CatalogController) BookDetail(c *gin.Context) {
	book, ok := loadBook(c, cc.db)
	if !ok {
		return
	}
	render(c, http.StatusOK, "book_detail.html", gin.H{
		"Title": book.Title,
		"Book":  book,
		"Today": catalog.Today(cc.clock()),
	})
}

func (cc *CatalogController) AuthorList(c *gin.Context) {
	authors, page, ok := paginate(c, cc.pageSize, cc.db.Authors.List)
	if !ok {
		return
	}
	render(c, http.StatusOK, "author_list.html", gin.H{
		"Title":      "Author List",
		"Authors":    authors,
		"Pagination": page,
	})
}

func (cc *CatalogController) AuthorDetail(c *gin.Context) {
	author, ok := loadAuthor(c, cc.db)
	if !ok {
		return
	}
	render(c, http.StatusOK, "author_detail.html", gin.H{
		"Title":  author.String(),
		"Author": author,
	})
}

// loadAuthor fetches the :id author or renders the matching error page.
func loadAuthor(c *gin.Context, db *database.Database) (*entities.Author, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	author, err := db.Authors.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderServerError(c, err, "load author")
		return nil, false
	}
	return author, true
}

// loadBook fetches the :id book or renders the matching error page.
func loadBook(c *gin.Context, db *database.Database) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := db.Books.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderServerError(c, err, "load book")
		return nil, false
	}
	return book, true
}
