package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
)

const contextKeyPage = "page_context"

// PageContext holds the per-request data every template can read as .Page.
type PageContext struct {
	LoggedIn        bool
	Username        string
	IsStaff         bool
	CanMarkReturned bool
	CanEditCatalog  bool
	CSRFField       template.HTML
	Path            string
}

// PageContextMiddleware injects the current user's capabilities for templates.
// With editRequiresPermission unset everybody may edit the catalog.
func PageContextMiddleware(editRequiresPermission bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := PageContext{
			CSRFField:      auth.CSRFTokenField(c),
			Path:           c.Request.URL.RequestURI(),
			CanEditCatalog: !editRequiresPermission,
		}

		if user := auth.GetUser(c); user != nil {
			page.LoggedIn = true
			page.Username = user.Username
			page.IsStaff = user.IsStaff()
			page.CanMarkReturned = user.HasPermission(entities.PermissionMarkReturned)
			if editRequiresPermission {
				page.CanEditCatalog = user.HasPermission(entities.PermissionEditCatalog)
			}
		}

		c.Set(contextKeyPage, page)
		c.Next()
	}
}

// GetPageContext retrieves the template data set by PageContextMiddleware.
func GetPageContext(c *gin.Context) PageContext {
	if data, exists := c.Get(contextKeyPage); exists {
		if page, ok := data.(PageContext); ok {
			return page
		}
	}
	return PageContext{}
}
