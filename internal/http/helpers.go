package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
)

// ErrorResponse is the error body sent to clients that asked for JSON.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// --- Rendering ---

// render executes a named template with the page context added as .Page.
// It matches auth.RenderFunc.
func render(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Page"] = GetPageContext(c)
	c.HTML(code, name, data)
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func renderError(c *gin.Context, status int, tmpl, title, code string) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(status, ErrorResponse{Error: strings.ToLower(title), Code: code})
		return
	}
	render(c, status, tmpl, gin.H{"Title": title})
	c.Abort()
}

// renderNotFound answers with the 404 page.
func renderNotFound(c *gin.Context) {
	renderError(c, http.StatusNotFound, "404.html", "Not found", "not_found")
}

// renderForbidden answers with the 403 page. It is installed as the auth
// middleware's forbidden handler.
func renderForbidden(c *gin.Context) {
	renderError(c, http.StatusForbidden, "403.html", "Forbidden", "forbidden")
}

// renderServerError logs the error and answers with the 500 page.
// The actual error is logged but not exposed to the client.
func renderServerError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	renderError(c, http.StatusInternalServerError, "500.html", "Server error", "internal")
}

// renderStoreError answers 404 when the record vanished between loading it
// and writing it, and 500 otherwise.
func renderStoreError(c *gin.Context, err error, context string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		renderNotFound(c)
		return
	}
	renderServerError(c, err, context)
}

// --- Parameter Parsing ---

// parseIDParam extracts an unsigned integer ID from URL parameters.
// A malformed ID renders the 404 page and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		renderNotFound(c)
		return 0, false
	}
	return uint(id), true
}

// parseUUIDParam extracts a book copy identifier from URL parameters.
func parseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		renderNotFound(c)
		return uuid.Nil, false
	}
	return id, true
}

// parseQueryID reads an optional unsigned integer from the query string.
// Empty or malformed values yield 0.
func parseQueryID(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// auditRequest describes the current request for the audit trail.
func auditRequest(c *gin.Context) audit.Request {
	return audit.Request{
		UserID:    auth.GetUserID(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// redirect sends the browser to path after a successful POST.
func redirect(c *gin.Context, path string) {
	c.Redirect(http.StatusFound, path)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
