package database

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "library.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_SeedsPermissions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	db, err := NewDatabase(dbPath, false)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	perms, err := db.Users.ListPermissions()
	require.NoError(t, err)
	assert.Len(t, perms, len(entities.DefaultPermissions))
	require.NoError(t, db.Close())

	reopened, err := NewDatabase(dbPath, false)
	require.NoError(t, err)
	defer reopened.Close()

	perms, err = reopened.Users.ListPermissions()
	require.NoError(t, err)
	assert.Len(t, perms, len(entities.DefaultPermissions), "seeding is idempotent")
}

func TestDatabase_Stats(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, CatalogStats{}, *stats)

	author := &entities.Author{FirstName: "Frank", LastName: "Herbert"}
	require.NoError(t, db.Authors.Create(author))
	genre := &entities.Genre{Name: "Science Fiction"}
	require.NoError(t, db.Genres.Create(genre))

	dune := &entities.Book{Title: "Dune", ISBN: "9780441172719", AuthorID: &author.ID}
	require.NoError(t, db.Books.Create(dune, []uint{genre.ID}))
	children := &entities.Book{Title: "The Dune Encyclopedia", ISBN: "9780441104024", AuthorID: &author.ID}
	require.NoError(t, db.Books.Create(children, nil))

	require.NoError(t, db.Instances.Create(&entities.BookInstance{BookID: &dune.ID, Imprint: "a", Status: entities.LoanStatusAvailable}))
	require.NoError(t, db.Instances.Create(&entities.BookInstance{BookID: &dune.ID, Imprint: "b", Status: entities.LoanStatusOnLoan}))
	require.NoError(t, db.Instances.Create(&entities.BookInstance{BookID: &children.ID, Imprint: "c"}))

	stats, err = db.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Books)
	assert.Equal(t, int64(3), stats.Instances)
	assert.Equal(t, int64(1), stats.InstancesAvailable)
	assert.Equal(t, int64(1), stats.Authors)
	assert.Equal(t, int64(1), stats.Genres)
	assert.Equal(t, int64(1), stats.BooksWithThe)
}

func TestTransaction_RollsBackBookWhenCopiesFail(t *testing.T) {
	db := setupTestDB(t)
	genre := &entities.Genre{Name: "Modernism"}
	require.NoError(t, db.Genres.Create(genre))
	book := &entities.Book{Title: "Ulysses", Summary: "Dublin", ISBN: "9780679722762"}
	require.NoError(t, db.Books.Create(book, []uint{genre.ID}))

	missing := &entities.BookInstance{ID: uuid.New(), Imprint: "Ghost", Status: entities.LoanStatusAvailable}
	err := db.Transaction(func(tx *Database) error {
		book.Title = "Ulysses (revised)"
		if err := tx.Books.Update(book, []uint{genre.ID}); err != nil {
			return err
		}
		return tx.Instances.SyncForBook(book.ID, []*entities.BookInstance{missing}, nil)
	})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := db.Books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ulysses", got.Title)
}

func TestTransaction_Commits(t *testing.T) {
	db := setupTestDB(t)

	err := db.Transaction(func(tx *Database) error {
		return tx.Genres.Create(&entities.Genre{Name: "Poetry"})
	})
	require.NoError(t, err)

	count, err := db.Genres.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
