package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/entities"
)

// Middleware resolves the caller of each request and guards routes.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	tokens         *TokenIssuer
}

// NewMiddleware creates a new authentication middleware. sessionManager and
// tokens may be nil to disable that method.
func NewMiddleware(service *Service, sessionManager *SessionManager, tokens *TokenIssuer) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		tokens:         tokens,
	}
}

// Handler stores the request Identity in the context. It never rejects a
// request; use RequireAuth or RequireRole on protected groups.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try Bearer token first (for API clients)
		if user := m.tryBearerAuth(c); user != nil {
			SetIdentity(c, IdentityForUser(user, AuthTypeBearer))
			c.Next()
			return
		}

		// Try session auth (for web UI)
		if user := m.trySessionAuth(c); user != nil {
			SetIdentity(c, IdentityForUser(user, AuthTypeSession))
			c.Next()
			return
		}

		SetIdentity(c, Identity{Method: AuthTypeNone})
		c.Next()
	}
}

// tryBearerAuth attempts to authenticate using a JWT Bearer token.
func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	if m.tokens == nil {
		return nil
	}
	token, ok := bearerToken(c)
	if !ok {
		return nil
	}

	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil
	}

	// The account may have been removed since the token was issued.
	user, err := m.service.ActiveUser(claims.UID)
	if err != nil {
		return nil
	}
	return user
}

// trySessionAuth attempts to authenticate using session cookie.
func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	data := m.sessionManager.GetSessionData(c.Request)
	if data == nil {
		return nil
	}

	user, err := m.service.ActiveUser(data.UserID)
	if err != nil {
		return nil
	}
	// A role change invalidates sessions opened under the old role.
	if user.Role != data.Role {
		_ = m.sessionManager.DestroySession(c.Request)
		return nil
	}
	return user
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	// Check for Bearer token attempt (even if invalid)
	return c.GetHeader("Authorization") != ""
}

func unauthenticated(c *gin.Context) {
	if isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": ErrAuthRequired.Error(),
		})
		return
	}
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

// RequireAuth rejects anonymous requests.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).IsAuthenticated() {
			unauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequireRole returns a middleware that requires one of roles.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := IdentityFrom(c)
		if !who.IsAuthenticated() {
			unauthenticated(c)
			return
		}
		if !who.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": ErrForbidden.Error(),
			})
			return
		}
		c.Next()
	}
}
