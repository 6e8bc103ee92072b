// Package maintenance puts the application into read-only mode while the
// library reorganises its catalog or migrates data.
package maintenance

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Message is returned to clients whose write was refused.
const Message = "The library is in maintenance mode, changes are disabled"

// RetryAfterSeconds is sent in the Retry-After header of refused writes.
const RetryAfterSeconds = "300"

// ContextKeyMaintenance stores the maintenance flag in the request context.
const ContextKeyMaintenance = "maintenance_mode"

// Middleware refuses write operations while maintenance mode is on.
// Reads, preflight requests and the login flow always pass.
type Middleware struct {
	enabled atomic.Bool
}

func NewMiddleware(enabled bool) *Middleware {
	m := &Middleware{}
	m.enabled.Store(enabled)
	return m
}

func (m *Middleware) IsEnabled() bool {
	return m.enabled.Load()
}

// SetEnabled toggles maintenance mode at runtime.
func (m *Middleware) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// Handler returns a Gin middleware that blocks writes while enabled.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.IsEnabled() {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		c.Header("Retry-After", RetryAfterSeconds)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":       Message,
			"maintenance": true,
		})
	}
}

// isAllowedPath lets users sign in and out during maintenance.
func isAllowedPath(path string) bool {
	for _, allowed := range []string{"/login", "/logout"} {
		if path == allowed || strings.HasPrefix(path, allowed+"/") {
			return true
		}
	}
	return false
}

// InjectContext exposes the flag to handlers and templates.
func (m *Middleware) InjectContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyMaintenance, m.IsEnabled())
		c.Next()
	}
}
