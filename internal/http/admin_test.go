package http

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/entities"
)

func TestAdmin_StaffOnly(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", entities.UserRoleMember, entities.PermissionEditCatalog)

	assert.Equal(t, http.StatusFound, env.get("/admin/").Code)

	member := env.login(t, "alice")
	assert.Equal(t, http.StatusForbidden, env.get("/admin/", member).Code)
	assert.Equal(t, http.StatusForbidden, env.get("/admin/books/", member).Code)

	staff := env.librarian(t)
	w := env.get("/admin/", staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Site administration")
}

var adminHref = regexp.MustCompile(`href="(/admin/[^"?]*)"`)

// Every admin link reachable from the index, and from the genre and language
// lists, must resolve.
func TestAdmin_LinksResolve(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	env.createGenre(t, "Poetry")
	require.NoError(t, env.db.Languages.Create(&entities.Language{Name: "Esperanto"}))

	seen := map[string]bool{}
	queue := []string{"/admin/"}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if seen[path] {
			continue
		}
		seen[path] = true

		w := env.get(path, cookie)
		require.Equal(t, http.StatusOK, w.Code, path)

		// Follow links one level below the index lists only.
		if path != "/admin/" && path != "/admin/genres/" && path != "/admin/languages/" {
			continue
		}
		for _, m := range adminHref.FindAllStringSubmatch(w.Body.String(), -1) {
			queue = append(queue, m[1])
		}
	}

	for _, path := range []string{"/admin/genres/", "/admin/genres/add/", "/admin/languages/", "/admin/languages/add/"} {
		assert.True(t, seen[path], "%s is linked", path)
	}
}

func TestAdmin_GenreCRUD(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)

	w := env.post("/admin/genres/add/", url.Values{"name": {"Poetry"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/genres/", w.Header().Get("Location"))

	genres, err := env.db.Genres.All()
	require.NoError(t, err)
	require.Len(t, genres, 1)
	id := genres[0].ID

	w = env.get("/admin/genres/", cookie)
	assert.Contains(t, w.Body.String(), "Poetry")

	w = env.post(fmt.Sprintf("/admin/genres/%d/", id), url.Values{"name": {""}}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	w = env.post(fmt.Sprintf("/admin/genres/%d/", id), url.Values{"name": {"Verse"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	genre, err := env.db.Genres.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Verse", genre.Name)

	w = env.get(fmt.Sprintf("/admin/genres/%d/delete/", id), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Verse")

	w = env.post(fmt.Sprintf("/admin/genres/%d/delete/", id), nil, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, http.StatusNotFound, env.get(fmt.Sprintf("/admin/genres/%d/", id), cookie).Code)
}

func TestAdmin_LanguageAdd(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)

	w := env.post("/admin/languages/add/", url.Values{"name": {"Esperanto"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)

	languages, err := env.db.Languages.All()
	require.NoError(t, err)
	require.Len(t, languages, 1)
	assert.Equal(t, "Esperanto", languages[0].Name)
}

func TestAdmin_BookDeleteRefusedWhileCopiesExist(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	book := env.createBook(t, "Ulysses", "9780679722762", nil)
	env.createInstance(t, book, entities.LoanStatusAvailable, nil, nil)

	w := env.post(fmt.Sprintf("/admin/books/%d/delete/", book.ID), nil, cookie)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "This book cannot be deleted while copies of it exist.")
}

// inlineRows builds the copy table part of the admin book form.
type inlineRow struct {
	id, imprint, dueBack, status, borrower string
}

func bookFormWithRows(book *entities.Book, genre *entities.Genre, rows []inlineRow, deletes ...string) url.Values {
	form := bookValues(book.Title, book.ISBN, genre)
	for _, r := range rows {
		form.Add("instance-id", r.id)
		form.Add("instance-imprint", r.imprint)
		form.Add("instance-due_back", r.dueBack)
		form.Add("instance-status", r.status)
		form.Add("instance-borrower", r.borrower)
	}
	for _, id := range deletes {
		form.Add("instance-delete", id)
	}
	return form
}

func TestAdmin_BookEditWithInlineCopies(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	borrower := env.createUser(t, "alice", entities.UserRoleMember)
	genre := env.createGenre(t, "Modernism")
	book := env.createBook(t, "Ulysses", "9780679722762", nil, genre)
	kept := env.createInstance(t, book, entities.LoanStatusAvailable, nil, nil)
	dropped := env.createInstance(t, book, entities.LoanStatusMaintenance, nil, nil)

	w := env.get(fmt.Sprintf("/admin/books/%d/", book.ID), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), kept.ID.String())
	assert.Contains(t, w.Body.String(), dropped.ID.String())

	form := bookFormWithRows(book, genre, []inlineRow{
		{id: kept.ID.String(), imprint: "Bodley Head", dueBack: "2024-03-20", status: "o", borrower: fmt.Sprint(borrower.ID)},
		{id: dropped.ID.String(), imprint: "First edition", status: "m"},
		{imprint: "Vintage", status: "a"},
		// The untouched blank row adds nothing.
		{status: "m"},
	}, dropped.ID.String())

	w = env.post(fmt.Sprintf("/admin/books/%d/", book.ID), form, cookie)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/admin/books/", w.Header().Get("Location"))

	copies, err := env.db.Instances.ListByBook(book.ID)
	require.NoError(t, err)
	require.Len(t, copies, 2)

	byImprint := map[string]entities.BookInstance{}
	for _, c := range copies {
		byImprint[c.Imprint] = c
	}
	updated := byImprint["Bodley Head"]
	assert.Equal(t, kept.ID, updated.ID)
	assert.Equal(t, entities.LoanStatusOnLoan, updated.Status)
	assert.Equal(t, "2024-03-20", catalog.FormatDate(updated.DueBack))
	assert.Equal(t, borrower.ID, *updated.BorrowerID)
	assert.Equal(t, entities.LoanStatusAvailable, byImprint["Vintage"].Status)

	_, total, err := env.audit.GetEventsByType(entities.AuditEventDelete, 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAdmin_BookEditRejectsMalformedBorrower(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	borrower := env.createUser(t, "alice", entities.UserRoleMember)
	genre := env.createGenre(t, "Modernism")
	book := env.createBook(t, "Ulysses", "9780679722762", nil, genre)
	loaned := env.createInstance(t, book, entities.LoanStatusOnLoan, borrower, env.daysFromToday(5))

	form := bookFormWithRows(book, genre, []inlineRow{
		{id: loaned.ID.String(), imprint: "First edition", dueBack: "2024-03-15", status: "o", borrower: "alice"},
	})

	w := env.post(fmt.Sprintf("/admin/books/%d/", book.ID), form, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Select a valid choice.")

	got, err := env.db.Instances.GetByID(loaned.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BorrowerID, "borrower kept")
	assert.Equal(t, borrower.ID, *got.BorrowerID)
}

func TestAdmin_BookEditRejectsBadRows(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	genre := env.createGenre(t, "Modernism")
	book := env.createBook(t, "Ulysses", "9780679722762", nil, genre)
	other := env.createBook(t, "Dubliners", "9780140186475", nil, genre)
	foreign := env.createInstance(t, other, entities.LoanStatusAvailable, nil, nil)

	form := bookFormWithRows(book, genre, []inlineRow{
		{imprint: "", dueBack: "2024-03-20", status: "a"},
		{id: foreign.ID.String(), imprint: "Stolen", status: "a"},
	})
	form.Set("title", "Ulysses (revised)")

	w := env.post(fmt.Sprintf("/admin/books/%d/", book.ID), form, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.Contains(t, w.Body.String(), "This copy does not belong to the book.")

	// Nothing was written.
	got, err := env.db.Books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ulysses", got.Title)
	assert.Empty(t, got.Instances)
	moved, err := env.db.Instances.GetByID(foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "First edition", moved.Imprint)
}

func TestAdmin_BookAddWithCopies(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	genre := env.createGenre(t, "Modernism")

	form := bookFormWithRows(&entities.Book{Title: "Ulysses", ISBN: "9780679722762"}, genre, []inlineRow{
		{imprint: "Vintage", status: "a"},
	})
	w := env.post("/admin/books/add/", form, cookie)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	list, err := env.db.Books.All()
	require.NoError(t, err)
	require.Len(t, list, 1)
	copies, err := env.db.Instances.ListByBook(list[0].ID)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, "Vintage", copies[0].Imprint)
}

func TestAdmin_InstanceListFilters(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	onLoan := env.createBook(t, "On Loan Book", "9780000000001", nil)
	shelved := env.createBook(t, "Shelved Book", "9780000000002", nil)
	repair := env.createBook(t, "Repair Book", "9780000000003", nil)
	env.createInstance(t, onLoan, entities.LoanStatusOnLoan, nil, env.daysFromToday(4))
	env.createInstance(t, shelved, entities.LoanStatusAvailable, nil, nil)
	env.createInstance(t, repair, entities.LoanStatusMaintenance, nil, env.daysFromToday(9))

	body := env.get("/admin/instances/?status=a", cookie).Body.String()
	assert.Contains(t, body, "Shelved Book")
	assert.NotContains(t, body, "On Loan Book")
	assert.NotContains(t, body, "Repair Book")

	body = env.get("/admin/instances/?due_back=set", cookie).Body.String()
	assert.Contains(t, body, "On Loan Book")
	assert.Contains(t, body, "Repair Book")
	assert.NotContains(t, body, "Shelved Book")

	body = env.get("/admin/instances/?status=m&due_back=unset", cookie).Body.String()
	assert.Contains(t, body, "0 book instances")

	// Unknown filter values are ignored.
	body = env.get("/admin/instances/?status=zz", cookie).Body.String()
	assert.Contains(t, body, "Shelved Book")
	assert.Contains(t, body, "On Loan Book")
}

func TestAdmin_InstanceStrictTransitions(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.Catalog.StrictTransitions = true
	})
	cookie := env.librarian(t)
	book := env.createBook(t, "Ulysses", "9780679722762", nil)
	instance := env.createInstance(t, book, entities.LoanStatusMaintenance, nil, nil)
	path := "/admin/instances/" + instance.ID.String() + "/"

	values := func(status string) url.Values {
		return url.Values{
			"book":    {fmt.Sprint(book.ID)},
			"imprint": {"First edition"},
			"status":  {status},
		}
	}

	w := env.post(path, values("o"), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Loan status transition not allowed")

	w = env.post(path, values("a"), cookie)
	require.Equal(t, http.StatusFound, w.Code)
	got, err := env.db.Instances.GetByID(instance.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusAvailable, got.Status)

	w = env.post(path, values("x"), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Select a valid choice.")
}

func TestAdmin_InstanceAdd(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)
	book := env.createBook(t, "Ulysses", "9780679722762", nil)

	w := env.get(fmt.Sprintf("/admin/instances/add/?book=%d", book.ID), cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.post("/admin/instances/add/", url.Values{
		"book":    {"999"},
		"imprint": {"Vintage"},
		"status":  {"a"},
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Select a valid choice.")

	w = env.post("/admin/instances/add/", url.Values{
		"book":     {fmt.Sprint(book.ID)},
		"imprint":  {"Vintage"},
		"status":   {"a"},
		"due_back": {"2024-04-01"},
	}, cookie)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	copies, err := env.db.Instances.ListByBook(book.ID)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, "2024-04-01", catalog.FormatDate(copies[0].DueBack))
}

func TestAdmin_AuditLog(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.librarian(t)

	require.Equal(t, http.StatusFound, env.post("/admin/genres/add/", url.Values{"name": {"Poetry"}}, cookie).Code)

	w := env.get("/admin/audit/", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Poetry")
	assert.Contains(t, w.Body.String(), "login")

	w = env.get("/admin/audit/?type=create", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Poetry")
	assert.NotContains(t, w.Body.String(), "<td>auth</td>")
}
