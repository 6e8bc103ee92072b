package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/validation"
)

// setupMutex serializes setup requests to prevent race conditions.
var setupMutex sync.Mutex

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
// Returns true if the path is safe for redirect (local path only).
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject paths with backslashes (potential bypass attempts)
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

// LoginAuditor records sign-in attempts.
type LoginAuditor interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

type loginRequest struct {
	Role     string `json:"role" form:"role"`
	LoginID  string `json:"login_id" form:"login_id"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

type setupRequest struct {
	LoginID         string `json:"login_id" form:"login_id"`
	FullName        string `json:"full_name" form:"full_name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type forgotRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	tokens         *TokenIssuer
	config         config.Auth
	limiter        *LoginLimiter
	auditor        LoginAuditor
	logger         *logrus.Entry
}

// NewAuthController creates a new authentication controller. tokens may be
// nil to disable bearer token issuing.
func NewAuthController(service *Service, sessionManager *SessionManager, tokens *TokenIssuer, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		tokens:         tokens,
		config:         cfg,
		limiter:        NewLoginLimiter(LimiterConfigFrom(cfg)),
		logger:         logrus.NewEntry(logrus.StandardLogger()).WithField("component", "auth_http"),
	}
}

func (ac *AuthController) SetAuditor(a LoginAuditor) {
	ac.auditor = a
}

func (ac *AuthController) SetLogger(logger *logrus.Entry) {
	ac.logger = logger.WithField("component", "auth_http")
}

// RegisterRoutes registers the public authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
	router.GET("/setup", ac.SetupStatus)
	router.POST("/setup", ac.Setup)
	router.POST("/register", ac.Register)
	router.POST("/password/forgot", ac.ForgotPassword)
}

// Stop ends the login limiter's background sweep.
func (ac *AuthController) Stop() {
	ac.limiter.Stop()
}

// Login checks credentials for the chosen role and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	role := entities.UserRole("")
	if strings.TrimSpace(req.Role) != "" {
		parsed, ok := entities.ParseUserRole(req.Role)
		if !ok {
			respondValidation(c, validation.Errors{"role": "unknown role"})
			return
		}
		role = parsed
	}

	loginID := strings.TrimSpace(req.LoginID)
	// Sanitize redirect path to prevent open redirect attacks
	next := sanitizeRedirectPath(req.Next)
	attempt := LoginAttempt{ClientIP: c.ClientIP(), Role: role, Identifier: loginID}

	if allowed, retryAfter := ac.limiter.Check(attempt); !allowed {
		respondTooManyAttempts(c, retryAfter)
		return
	}

	user, err := ac.service.Authenticate(role, loginID, req.Password)
	if err != nil {
		ac.limiter.Fail(attempt)
		ac.auditLogin(0, "login_failed", c, false)

		switch {
		case errors.Is(err, ErrAccountLocked):
			c.JSON(http.StatusLocked, gin.H{"error": "account is locked, please try again later"})
		case errors.Is(err, ErrNotApproved):
			c.JSON(http.StatusForbidden, gin.H{"error": ErrNotApproved.Error()})
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid login id or password"})
		default:
			ac.logger.WithError(err).Error("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	ac.limiter.Succeed(attempt)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			ac.logger.WithError(err).Error("failed to create session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
	}
	ac.auditLogin(user.ID, "login", c, true)

	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"redirect": next,
	})
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	who := IdentityFrom(c)
	if ac.sessionManager != nil && ac.sessionManager.IsAuthenticated(c.Request) {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	if who.IsAuthenticated() {
		ac.auditLogin(who.UserID, "logout", c, true)
	}

	if c.Request.Method == http.MethodGet && !isAPIRequest(c) {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// SetupStatus reports whether the first administrator still has to be created.
func (ac *AuthController) SetupStatus(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"setup_required": !hasUsers})
}

// Setup handles the initial admin user creation.
// Uses a mutex to prevent race conditions where concurrent requests both pass HasUsers() check.
func (ac *AuthController) Setup(c *gin.Context) {
	// Serialize setup requests to prevent race conditions
	setupMutex.Lock()
	defer setupMutex.Unlock()

	// Only allow setup if no users exist (check while holding mutex)
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if hasUsers {
		c.JSON(http.StatusConflict, gin.H{"error": ErrSetupComplete.Error()})
		return
	}

	var req setupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// Validate passwords match
	if req.Password != req.ConfirmPassword {
		respondValidation(c, validation.Errors{"confirm_password": "passwords do not match"})
		return
	}

	user, err := ac.service.CreateAdmin(req.LoginID, req.FullName, req.Email, req.Password)
	if err != nil {
		ac.respondError(c, err)
		return
	}

	// Create session for new user
	if ac.sessionManager != nil {
		_ = ac.sessionManager.CreateSession(c.Request, user)
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Register creates an account that waits for administrator approval.
func (ac *AuthController) Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := ac.service.Register(c.Request.Context(), in)
	if err != nil {
		ac.respondError(c, err)
		return
	}

	resp := gin.H{
		"user":    result.User,
		"message": "Registration successful. Your account is pending approval.",
	}
	if result.TaskID != "" {
		resp["task_id"] = result.TaskID
	}
	if result.NotificationErr != nil {
		resp["notice"] = "Your registration was saved, but the confirmation email could not be sent."
	}
	c.JSON(http.StatusCreated, resp)
}

// ForgotPassword emails a new password. The response is the same whether or
// not the account exists.
func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	_, err := ac.service.ResetPassword(c.Request.Context(), req.Identifier)
	if ve, ok := validation.As(err); ok {
		respondValidation(c, ve)
		return
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		ac.logger.WithError(err).Warn("password reset failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If the account exists, a new password has been sent to its email address.",
	})
}

// Token issues a bearer token for the signed-in user.
func (ac *AuthController) Token(c *gin.Context) {
	if ac.tokens == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bearer tokens are disabled"})
		return
	}

	who := IdentityFrom(c)
	if !who.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
		return
	}

	user, err := ac.service.ActiveUser(who.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
		return
	}

	token, expiresAt, err := ac.tokens.Issue(user)
	if err != nil {
		ac.logger.WithError(err).Error("failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt,
	})
}

func (ac *AuthController) auditLogin(userID uint, action string, c *gin.Context, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

func (ac *AuthController) respondError(c *gin.Context, err error) {
	if ve, ok := validation.As(err); ok {
		respondValidation(c, ve)
		return
	}
	switch {
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		respondValidation(c, validation.Errors{"password": err.Error()})
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrSetupComplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		ac.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondValidation(c *gin.Context, errs validation.Errors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation failed",
		"details": errs,
	})
}

// respondTooManyAttempts answers a throttled login. Retry-After is in whole
// seconds, rounded up.
func respondTooManyAttempts(c *gin.Context, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "too many login attempts",
		"retry_after": seconds,
	})
}
