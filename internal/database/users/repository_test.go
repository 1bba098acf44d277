package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database/dbtest"
	"github.com/mrlokans/library/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository) {
	db := dbtest.Open(t)
	for _, perm := range entities.DefaultPermissions {
		perm := perm
		require.NoError(t, db.Create(&perm).Error)
	}
	return db, NewRepository(db)
}

func newUser(username string) *entities.User {
	return &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         entities.UserRoleMember,
	}
}

func TestRepository_CreateUser(t *testing.T) {
	_, repo := setupTestDB(t)

	user := newUser("testuser")
	require.NoError(t, repo.CreateUser(user))
	assert.NotZero(t, user.ID)

	got, err := repo.GetUserByUsername("testuser")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "testuser@example.com", got.Email)
	assert.Equal(t, entities.UserRoleMember, got.Role)

	assert.Error(t, repo.CreateUser(newUser("testuser")), "usernames are unique")
}

func TestRepository_GetUserByID_NotFound(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.GetUserByID(99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_Permissions(t *testing.T) {
	_, repo := setupTestDB(t)

	user := newUser("librarian")
	require.NoError(t, repo.CreateUser(user))

	perm, err := repo.GetPermission(entities.PermissionMarkReturned)
	require.NoError(t, err)

	require.NoError(t, repo.AddPermission(user, perm))
	require.NoError(t, repo.AddPermission(user, perm))

	got, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	require.Len(t, got.Permissions, 1)
	assert.True(t, got.HasPermission(entities.PermissionMarkReturned))
	assert.False(t, got.HasPermission(entities.PermissionEditCatalog))

	require.NoError(t, repo.RemovePermission(got, perm))
	got, err = repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Permissions)

	perms, err := repo.ListPermissions()
	require.NoError(t, err)
	assert.Len(t, perms, len(entities.DefaultPermissions))

	_, err = repo.GetPermission("can_fly")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListAndCount(t *testing.T) {
	_, repo := setupTestDB(t)

	require.NoError(t, repo.CreateUser(newUser("zoe")))
	require.NoError(t, repo.CreateUser(newUser("adam")))

	users, err := repo.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "adam", users[0].Username)

	count, err := repo.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_UpdateRoleAndLastLogin(t *testing.T) {
	_, repo := setupTestDB(t)

	user := newUser("promoted")
	require.NoError(t, repo.CreateUser(user))

	require.NoError(t, repo.UpdateRole(user.ID, entities.UserRoleLibrarian))
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLastLogin(user.ID, now))

	got, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsStaff())
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, now.Equal(*got.LastLoginAt))

	assert.ErrorIs(t, repo.UpdateRole(999, entities.UserRoleAdmin), gorm.ErrRecordNotFound)
}

func TestRepository_DeleteUser_ClearsBorrower(t *testing.T) {
	db, repo := setupTestDB(t)

	user := newUser("borrower")
	require.NoError(t, repo.CreateUser(user))
	perm, err := repo.GetPermission(entities.PermissionEditCatalog)
	require.NoError(t, err)
	require.NoError(t, repo.AddPermission(user, perm))

	book := &entities.Book{Title: "Dune", ISBN: "9780441172719"}
	require.NoError(t, db.Create(book).Error)
	instance := &entities.BookInstance{BookID: &book.ID, Imprint: "Chilton", Status: entities.LoanStatusOnLoan, BorrowerID: &user.ID}
	require.NoError(t, db.Create(instance).Error)

	require.NoError(t, repo.DeleteUser(user.ID))

	var reloaded entities.BookInstance
	require.NoError(t, db.Where("id = ?", instance.ID).First(&reloaded).Error)
	assert.Nil(t, reloaded.BorrowerID)

	assert.ErrorIs(t, repo.DeleteUser(user.ID), gorm.ErrRecordNotFound)
}
