package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/entities"
)

// ContextKeyIdentity is the gin context key holding the request Identity.
const ContextKeyIdentity = "auth_identity"

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Identity is the caller of one request.
type Identity struct {
	UserID  uint              `json:"user_id"`
	LoginID string            `json:"login_id"`
	Role    entities.UserRole `json:"role"`
	Method  AuthType          `json:"method"`
}

// IdentityForUser builds the identity of an authenticated user.
func IdentityForUser(u *entities.User, method AuthType) Identity {
	return Identity{UserID: u.ID, LoginID: u.Login(), Role: u.Role, Method: method}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != 0
}

// HasRole reports whether the caller is authenticated with one of roles.
func (i Identity) HasRole(roles ...entities.UserRole) bool {
	if !i.IsAuthenticated() {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// SetIdentity stores who in the gin context.
func SetIdentity(c *gin.Context, who Identity) {
	c.Set(ContextKeyIdentity, who)
}

// IdentityFrom returns the request identity, or the anonymous identity.
func IdentityFrom(c *gin.Context) Identity {
	if v, ok := c.Get(ContextKeyIdentity); ok {
		if who, ok := v.(Identity); ok {
			return who
		}
	}
	return Identity{Method: AuthTypeNone}
}
