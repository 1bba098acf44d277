package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

const testPassword = "correct-horse"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db         *database.Database
	service    *Service
	sessions   *SessionManager
	middleware *Middleware
	audit      *audit.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Auth{
		SessionLifetime: 24 * time.Hour,
		BcryptCost:      4, // Low cost for faster tests
		SecureCookies:   false,
	}

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	service := NewService(db.Users, cfg)
	return &testEnv{
		db:         db,
		service:    service,
		sessions:   sm,
		middleware: NewMiddleware(service, sm),
		audit:      audit.NewService(db.Audit),
	}
}

func (e *testEnv) createUser(t *testing.T, username string, role entities.UserRole, perms ...string) *entities.User {
	t.Helper()
	user, err := e.service.CreateUser(username, username+"@library.test", testPassword, role)
	require.NoError(t, err)
	for _, perm := range perms {
		require.NoError(t, e.service.GrantPermission(user.ID, perm))
	}
	return user
}

// jsonRender stands in for the HTML renderer and exposes the template name.
func jsonRender(c *gin.Context, code int, name string, data gin.H) {
	data["template"] = name
	c.JSON(code, data)
}
