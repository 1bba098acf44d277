package http

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

func TestLoadTemplates_ParsesEveryPage(t *testing.T) {
	tmpl, err := LoadTemplates("../../templates")
	require.NoError(t, err)

	for _, name := range []string{
		"index.html", "book_list.html", "book_detail.html", "author_list.html", "author_detail.html",
		"bookinstance_list_borrowed_user.html", "bookinstance_list_all_borrowed.html", "book_renew_librarian.html",
		"author_form.html", "author_confirm_delete.html", "book_form.html", "book_confirm_delete.html",
		"admin_index.html", "admin_book_form.html", "admin_instance_list.html", "admin_audit.html",
		"login.html", "setup.html", "403.html", "404.html", "500.html",
	} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
	for _, partial := range []string{"header", "footer", "pagination", "field_error", "book_fields", "admin_nav"} {
		assert.NotNil(t, tmpl.Lookup(partial), partial)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/")

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestRouter_WithoutAuthGatedPagesAreForbidden(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	router := NewRouter(RouterConfig{
		Database:      db,
		Catalog:       config.Catalog{EditRequiresPermission: false},
		TemplatesPath: "../../templates",
	})
	env := &testEnv{db: db, router: router}

	assert.Equal(t, http.StatusOK, env.get("/").Code)
	assert.Equal(t, http.StatusOK, env.get("/books/").Code)
	assert.Equal(t, http.StatusForbidden, env.get("/mybooks/").Code)
	assert.Equal(t, http.StatusForbidden, env.get("/borrowed/").Code)
	assert.Equal(t, http.StatusForbidden, env.get("/admin/").Code)
	assert.Equal(t, http.StatusOK, env.get("/author/create/").Code)
	// No login routes without an auth service.
	assert.Equal(t, http.StatusNotFound, env.get("/accounts/login/").Code)
}

func TestRouter_NavigationFollowsPermissions(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", entities.UserRoleMember)

	body := env.get("/").Body.String()
	assert.Contains(t, body, "/accounts/login/?next=")
	assert.NotContains(t, body, "/borrowed/")

	body = env.get("/", env.login(t, "alice")).Body.String()
	assert.Contains(t, body, "User: alice")
	assert.Contains(t, body, "/mybooks/")
	assert.NotContains(t, body, "/borrowed/")
	assert.NotContains(t, body, "/admin/")

	body = env.get("/", env.librarian(t)).Body.String()
	assert.Contains(t, body, "/borrowed/")
	assert.Contains(t, body, "/book/create/")
	assert.Contains(t, body, "/admin/")
}

func TestRouter_CSRFRejectsTokenlessPosts(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.CSRFSecret = []byte("0123456789abcdef0123456789abcdef")
	})
	env.createUser(t, "alice", entities.UserRoleMember)

	w := env.post("/accounts/login/", url.Values{"username": {"alice"}, "password": {testPassword}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.get("/accounts/login/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="gorilla.csrf.Token"`)
}
