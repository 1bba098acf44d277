package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/entities"
)

// LoginPath is where anonymous visitors of protected pages are sent.
const LoginPath = "/accounts/login/"

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
)

// Middleware resolves the session user and guards routes.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	forbidden      gin.HandlerFunc
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		forbidden: func(c *gin.Context) {
			c.AbortWithStatus(http.StatusForbidden)
		},
	}
}

// SetForbiddenHandler replaces the plain 403 response, typically with a
// rendered page. The handler must abort the context.
func (m *Middleware) SetForbiddenHandler(h gin.HandlerFunc) {
	m.forbidden = h
}

// Handler returns a Gin middleware that loads the logged in user, if any,
// into the context. It never blocks a request.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := m.trySessionAuth(c); user != nil {
			setUserContext(c, user)
		}
		c.Next()
	}
}

// trySessionAuth attempts to authenticate using session cookie.
func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}

	return user
}

func setUserContext(c *gin.Context, user *entities.User) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func (m *Middleware) unauthenticated(c *gin.Context) {
	if isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}
	c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
	c.Abort()
}

// LoginURL builds the login link that returns to next afterwards.
func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// RequireAuth returns a middleware that requires a logged in user.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUser(c) == nil {
			m.unauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequirePermission returns a middleware that requires a named permission.
// Anonymous visitors are sent to the login page; logged in users without the
// permission get 403.
func (m *Middleware) RequirePermission(codename string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			m.unauthenticated(c)
			return
		}
		if !user.HasPermission(codename) {
			m.forbidden(c)
			return
		}
		c.Next()
	}
}

// RequireStaff returns a middleware that admits admins and librarians only.
func (m *Middleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			m.unauthenticated(c)
			return
		}
		if !user.IsStaff() {
			m.forbidden(c)
			return
		}
		c.Next()
	}
}

// Helper functions to extract auth data from Gin context

// GetUser returns the logged in user, or nil for anonymous requests.
func GetUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves the authenticated user's ID, or 0.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// IsAuthenticated returns true if the request is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUser(c) != nil
}

// HasPermission reports whether the current user holds codename.
func HasPermission(c *gin.Context, codename string) bool {
	user := GetUser(c)
	return user != nil && user.HasPermission(codename)
}
