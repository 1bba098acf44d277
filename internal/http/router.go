package http

import (
	"html/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/entities"
)

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"formatDate": catalog.FormatDate,
	"formatTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"code": func(s entities.LoanStatus) string {
		return string(s)
	},
	"add": func(a, b int) int {
		return a + b
	},
	"subtract": func(a, b int) int {
		return a - b
	},
}

// LoadTemplates parses every page and partial under path.
func LoadTemplates(path string) (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseGlob(path + "/*.html")
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	registerValidators()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
		cfg.AuthMiddleware.SetForbiddenHandler(renderForbidden)
	}

	// Inject auth data for templates
	router.Use(PageContextMiddleware(cfg.Catalog.EditRequiresPermission))

	// Load HTML templates with custom functions
	router.SetHTMLTemplate(template.Must(LoadTemplates(cfg.TemplatesPath)))

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	router.NoRoute(renderNotFound)

	// Gates. Without an auth middleware nothing can be authorized, so the
	// gated pages answer 403.
	requireAuth, canMarkReturned, canEdit, staffOnly := gates(cfg)

	if cfg.AuthService != nil {
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.Audit, render)
		authController.SetLoginLimiter(cfg.LoginLimiter)
		authController.RegisterRoutes(router)
	}

	pageSize := cfg.pageSize()
	health := NewHealthController(cfg.Database, cfg.Version, cfg.clock())
	catalogController := NewCatalogController(cfg.Database, cfg.SessionManager, pageSize, cfg.clock())
	loans := NewLoansController(cfg.Database, cfg.Audit, pageSize, cfg.clock())
	editing := NewEditController(cfg.Database, cfg.Audit)
	admin := NewAdminController(cfg.Database, cfg.Audit, pageSize, cfg.Catalog.StrictTransitions)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Browsing
	router.GET("/", catalogController.Index)
	router.GET("/books/", catalogController.BookList)
	router.GET("/books/:id/", catalogController.BookDetail)
	router.GET("/authors/", catalogController.AuthorList)
	router.GET("/authors/:id/", catalogController.AuthorDetail)

	// Loans
	router.GET("/mybooks/", requireAuth, loans.MyBooks)
	router.GET("/borrowed/", canMarkReturned, loans.Borrowed)
	router.GET("/book/:id/renew/", canMarkReturned, loans.RenewPage)
	router.POST("/book/:id/renew/", canMarkReturned, loans.Renew)

	// Catalog editing
	edit := router.Group("/", canEdit)
	edit.GET("/author/create/", editing.AuthorCreatePage)
	edit.POST("/author/create/", editing.AuthorCreate)
	edit.GET("/author/:id/update/", editing.AuthorUpdatePage)
	edit.POST("/author/:id/update/", editing.AuthorUpdate)
	edit.GET("/author/:id/delete/", editing.AuthorDeletePage)
	edit.POST("/author/:id/delete/", editing.AuthorDelete)
	edit.GET("/book/create/", editing.BookCreatePage)
	edit.POST("/book/create/", editing.BookCreate)
	edit.GET("/book/:id/update/", editing.BookUpdatePage)
	edit.POST("/book/:id/update/", editing.BookUpdate)
	edit.GET("/book/:id/delete/", editing.BookDeletePage)
	edit.POST("/book/:id/delete/", editing.BookDelete)

	// Back office
	admin.RegisterRoutes(router.Group("/admin", staffOnly))

	return router
}

func gates(cfg RouterConfig) (requireAuth, canMarkReturned, canEdit, staffOnly gin.HandlerFunc) {
	// With the permission switched off anybody may edit the catalog.
	canEdit = func(c *gin.Context) { c.Next() }

	m := cfg.AuthMiddleware
	if m == nil {
		if cfg.Catalog.EditRequiresPermission {
			canEdit = renderForbidden
		}
		return renderForbidden, renderForbidden, canEdit, renderForbidden
	}

	if cfg.Catalog.EditRequiresPermission {
		canEdit = m.RequirePermission(entities.PermissionEditCatalog)
	}
	return m.RequireAuth(), m.RequirePermission(entities.PermissionMarkReturned), canEdit, m.RequireStaff()
}
