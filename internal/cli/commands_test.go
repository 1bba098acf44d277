package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

func createUser(t *testing.T, dbPath string, perms ...string) {
	t.Helper()
	cmd := &CreateUserCommand{
		Username:     "ann",
		Email:        "ann@library.test",
		Password:     "secret-password",
		Role:         string(entities.UserRoleLibrarian),
		Permissions:  perms,
		DatabasePath: dbPath,
		BcryptCost:   4,
	}
	require.NoError(t, cmd.Run())
}

func loadUser(t *testing.T, dbPath string) *entities.User {
	t.Helper()
	db, err := database.NewDatabase(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	user, err := db.Users.GetUserByUsername("ann")
	require.NoError(t, err)
	return user
}

func TestCreateUserCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	createUser(t, dbPath, entities.PermissionMarkReturned)

	user := loadUser(t, dbPath)
	assert.Equal(t, entities.UserRoleLibrarian, user.Role)
	assert.True(t, user.HasPermission(entities.PermissionMarkReturned))
	assert.False(t, user.HasPermission(entities.PermissionEditCatalog))
}

func TestCreateUserCommand_RejectsDuplicates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")
	createUser(t, dbPath)

	cmd := &CreateUserCommand{
		Username:     "ann",
		Email:        "other@library.test",
		Password:     "secret-password",
		Role:         string(entities.UserRoleMember),
		DatabasePath: dbPath,
		BcryptCost:   4,
	}
	assert.Error(t, cmd.Run())
}

func TestGrantPermissionCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")
	createUser(t, dbPath)

	grant := &GrantPermissionCommand{
		Username:     "ann",
		Permissions:  stringList{entities.PermissionMarkReturned, entities.PermissionEditCatalog},
		DatabasePath: dbPath,
	}
	require.NoError(t, grant.Run())
	assert.True(t, loadUser(t, dbPath).HasPermission(entities.PermissionEditCatalog))

	revoke := &GrantPermissionCommand{
		Username:     "ann",
		Permissions:  stringList{entities.PermissionEditCatalog},
		Revoke:       true,
		DatabasePath: dbPath,
	}
	require.NoError(t, revoke.Run())
	user := loadUser(t, dbPath)
	assert.False(t, user.HasPermission(entities.PermissionEditCatalog))
	assert.True(t, user.HasPermission(entities.PermissionMarkReturned))
}

func TestGrantPermissionCommand_Errors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")
	createUser(t, dbPath)

	unknownUser := &GrantPermissionCommand{Username: "bob", Permissions: stringList{entities.PermissionEditCatalog}, DatabasePath: dbPath}
	assert.Error(t, unknownUser.Run())

	unknownPerm := &GrantPermissionCommand{Username: "ann", Permissions: stringList{"can_fly"}, DatabasePath: dbPath}
	assert.Error(t, unknownPerm.Run())
}

func TestStringList(t *testing.T) {
	var s stringList
	require.NoError(t, s.Set("a"))
	require.NoError(t, s.Set("b"))
	assert.Equal(t, "a,b", s.String())
}
