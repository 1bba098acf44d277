package http

import (
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Audit    *audit.Service

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	LoginLimiter   *auth.LoginLimiter

	// CSRF protection is installed when the secret is set.
	CSRFSecret    []byte
	SecureCookies bool

	// Lending rules
	Catalog config.Catalog
	Clock   catalog.Clock

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string
}

func (cfg RouterConfig) pageSize() int {
	if cfg.Catalog.PageSize <= 0 {
		return config.DefaultPageSize
	}
	return cfg.Catalog.PageSize
}

func (cfg RouterConfig) clock() catalog.Clock {
	if cfg.Clock == nil {
		return catalog.SystemClock
	}
	return cfg.Clock
}
