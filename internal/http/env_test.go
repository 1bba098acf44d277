package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

const testPassword = "correct-horse"

// testNow pins "today" for every handler under test.
var testNow = time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db       *database.Database
	service  *auth.Service
	sessions *auth.SessionManager
	audit    *audit.Service
	router   *gin.Engine
	today    time.Time
}

func newTestEnv(t *testing.T, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authCfg := config.Auth{
		SessionLifetime: 24 * time.Hour,
		BcryptCost:      4,
	}
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)

	service := auth.NewService(db.Users, authCfg)
	auditService := audit.NewService(db.Audit)

	cfg := RouterConfig{
		Database:       db,
		Audit:          auditService,
		AuthService:    service,
		AuthMiddleware: auth.NewMiddleware(service, sessions),
		SessionManager: sessions,
		Catalog: config.Catalog{
			PageSize:               config.DefaultPageSize,
			EditRequiresPermission: true,
		},
		Clock:         func() time.Time { return testNow },
		TemplatesPath: "../../templates",
		Version:       "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testEnv{
		db:       db,
		service:  service,
		sessions: sessions,
		audit:    auditService,
		router:   NewRouter(cfg),
		today:    catalog.Today(testNow),
	}
}

// --- Requests ---

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return e.serve(req, cookies)
}

func (e *testEnv) getJSON(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	return e.serve(req, cookies)
}

func (e *testEnv) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req, cookies)
}

func (e *testEnv) serve(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// --- Users ---

func (e *testEnv) createUser(t *testing.T, username string, role entities.UserRole, perms ...string) *entities.User {
	t.Helper()
	user, err := e.service.CreateUser(username, username+"@library.test", testPassword, role)
	require.NoError(t, err)
	for _, perm := range perms {
		require.NoError(t, e.service.GrantPermission(user.ID, perm))
	}
	return user
}

// login signs username in and returns the session cookie.
func (e *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	w := e.post(auth.LoginPath, url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	cookie := sessionCookie(w)
	require.NotNil(t, cookie, "login did not set a session cookie")
	return cookie
}

// librarian creates and signs in a staff user holding both catalog permissions.
func (e *testEnv) librarian(t *testing.T) *http.Cookie {
	t.Helper()
	e.createUser(t, "librarian", entities.UserRoleLibrarian,
		entities.PermissionMarkReturned, entities.PermissionEditCatalog)
	return e.login(t, "librarian")
}

// --- Catalog fixtures ---

func (e *testEnv) createAuthor(t *testing.T, first, last string) *entities.Author {
	t.Helper()
	author := &entities.Author{FirstName: first, LastName: last}
	require.NoError(t, e.db.Authors.Create(author))
	return author
}

func (e *testEnv) createGenre(t *testing.T, name string) *entities.Genre {
	t.Helper()
	genre := &entities.Genre{Name: name}
	require.NoError(t, e.db.Genres.Create(genre))
	return genre
}

func (e *testEnv) createBook(t *testing.T, title, isbn string, author *entities.Author, genres ...*entities.Genre) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Summary: "Summary of " + title, ISBN: isbn}
	if author != nil {
		book.AuthorID = &author.ID
	}
	var ids []uint
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	require.NoError(t, e.db.Books.Create(book, ids))
	return book
}

func (e *testEnv) createInstance(t *testing.T, book *entities.Book, status entities.LoanStatus, borrower *entities.User, dueBack *time.Time) *entities.BookInstance {
	t.Helper()
	instance := &entities.BookInstance{
		BookID:  &book.ID,
		Imprint: "First edition",
		Status:  status,
		DueBack: dueBack,
	}
	if borrower != nil {
		instance.BorrowerID = &borrower.ID
	}
	require.NoError(t, e.db.Instances.Create(instance))
	return instance
}

func (e *testEnv) daysFromToday(n int) *time.Time {
	d := catalog.AddDays(e.today, n)
	return &d
}

// sessionCookie returns the session cookie a response set, if any.
func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}
