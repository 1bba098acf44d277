package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/entities"
)

// setupMutex serializes setup requests so two concurrent requests cannot both
// create the first admin.
var setupMutex sync.Mutex

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	// Browsers treat backslashes like slashes
	if strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// RenderFunc renders a named template with the shared page data added.
type RenderFunc func(c *gin.Context, code int, name string, data gin.H)

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	audit          *audit.Service
	render         RenderFunc
	limiter        *LoginLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, auditService *audit.Service, render RenderFunc) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		audit:          auditService,
		render:         render,
	}
}

// SetLoginLimiter throttles repeated failed logins. Nil disables it.
func (ac *AuthController) SetLoginLimiter(l *LoginLimiter) {
	ac.limiter = l
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET(LoginPath, ac.LoginPage)
	router.POST(LoginPath, ac.Login)
	router.POST("/accounts/logout/", ac.Logout)
	router.GET("/accounts/logout/", ac.Logout)
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
}

func auditRequest(c *gin.Context, userID uint) audit.Request {
	return audit.Request{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	next := sanitizeRedirectPath(c.Query("next"))

	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, next)
		return
	}

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		log.Printf("Failed to count users: %v", err)
	} else if !hasUsers {
		c.Redirect(http.StatusFound, "/setup")
		return
	}

	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Log in",
		"Next":  next,
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))

	ip := c.ClientIP()
	if ok, retryAfter := ac.limiter.Allow(ip, username); !ok {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
		ac.audit.LogAuth(auditRequest(c, 0), "login_throttled", false)
		ac.render(c, http.StatusTooManyRequests, "login.html", gin.H{
			"Title":    "Log in",
			"Next":     next,
			"Username": username,
			"Error":    "Too many failed login attempts. Please try again later.",
		})
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Printf("Login failed for %q: %v", username, err)
		}
		if ac.limiter.RecordFailure(ip, username) {
			log.Printf("Locked out login for %q from %s", username, ip)
		}
		ac.audit.LogAuth(auditRequest(c, 0), "login", false)
		ac.render(c, http.StatusOK, "login.html", gin.H{
			"Title":    "Log in",
			"Next":     next,
			"Username": username,
			"Error":    "Please enter a correct username and password.",
		})
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for %s: %v", user.Username, err)
		ac.render(c, http.StatusInternalServerError, "login.html", gin.H{
			"Title":    "Log in",
			"Next":     next,
			"Username": username,
			"Error":    "Failed to create session",
		})
		return
	}

	ac.limiter.RecordSuccess(ip, username)
	ac.audit.LogAuth(auditRequest(c, user.ID), "login", true)
	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and returns to the home page.
func (ac *AuthController) Logout(c *gin.Context) {
	if userID := GetUserID(c); userID != 0 {
		ac.audit.LogAuth(auditRequest(c, userID), "logout", true)
	}
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	c.Redirect(http.StatusFound, "/")
}

// SetupPage renders the initial admin setup form.
func (ac *AuthController) SetupPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{
			"Title": "Initial setup",
			"Error": "Database error. Please try again.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	ac.render(c, http.StatusOK, "setup.html", gin.H{
		"Title": "Initial setup",
	})
}

// Setup creates the first admin account and logs it in.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{
			"Title": "Initial setup",
			"Error": "Database error. Please try again.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	renderError := func(msg string) {
		ac.render(c, http.StatusOK, "setup.html", gin.H{
			"Title":    "Initial setup",
			"Username": username,
			"Email":    email,
			"Error":    msg,
		})
	}

	if password != c.PostForm("confirm_password") {
		renderError("Passwords do not match")
		return
	}

	user, err := ac.service.CreateUser(username, email, password, entities.UserRoleAdmin)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordTooShort),
			errors.Is(err, ErrPasswordTooLong),
			errors.Is(err, ErrUsernameRequired),
			errors.Is(err, ErrUsernameInvalid),
			errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrEmailInvalid),
			errors.Is(err, ErrPasswordRequired):
			renderError(capitalize(err.Error()))
		case errors.Is(err, ErrUserExists):
			c.Redirect(http.StatusFound, LoginPath)
		default:
			log.Printf("Failed to create admin user: %v", err)
			renderError("Failed to create user")
		}
		return
	}

	log.Printf("Created initial admin user %s", user.Username)
	ac.audit.LogCreate(auditRequest(c, user.ID), audit.EntityUser, user.Username, user.Username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for %s: %v", user.Username, err)
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
