package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entities"
)

func setupMiddleware(t *testing.T) (*Middleware, *TokenIssuer, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	cfg := config.Auth{
		Mode:            config.AuthModeLocal,
		SessionLifetime: 24 * time.Hour,
		SecureCookies:   false,
		BcryptCost:      4, // Low cost for faster tests
	}

	service := NewService(db, cfg)
	tokens := NewTokenIssuer([]byte("middleware-secret"), "library-manager", time.Hour)
	return NewMiddleware(service, NewMemorySessionManager(cfg), tokens), tokens, db
}

func seedUser(t *testing.T, db *gorm.DB, login string, role entities.UserRole, approved bool) *entities.User {
	t.Helper()
	user := &entities.User{
		LoginID:    &login,
		FullName:   login,
		Email:      login + "@example.com",
		Role:       role,
		IsApproved: approved,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// newRouter loads the session before the identity is resolved, as NewRouter does.
func newRouter(m *Middleware) *gin.Engine {
	router := gin.New()
	router.Use(m.sessionManager.SessionLoadSave())
	router.Use(m.Handler())
	return router
}

// identityRouter echoes the resolved identity as JSON.
func identityRouter(m *Middleware) *gin.Engine {
	router := newRouter(m)
	router.GET("/api/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, IdentityFrom(c))
	})
	return router
}

func decodeIdentity(t *testing.T, rr *httptest.ResponseRecorder) Identity {
	t.Helper()
	var who Identity
	if err := json.Unmarshal(rr.Body.Bytes(), &who); err != nil {
		t.Fatalf("failed to decode identity: %v", err)
	}
	return who
}

func TestMiddleware_AnonymousRequest(t *testing.T) {
	m, _, _ := setupMiddleware(t)
	router := identityRouter(m)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/whoami", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Handler() must not reject anonymous requests, got %d", rr.Code)
	}
	if who := decodeIdentity(t, rr); who.IsAuthenticated() || who.Method != AuthTypeNone {
		t.Errorf("expected anonymous identity, got %+v", who)
	}
}

func TestMiddleware_BearerAuth_ValidToken(t *testing.T) {
	m, tokens, db := setupMiddleware(t)
	user := seedUser(t, db, "S200", entities.UserRoleStudent, true)
	token, _, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	router := identityRouter(m)
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	who := decodeIdentity(t, rr)
	if who.UserID != user.ID || who.LoginID != "S200" || who.Role != entities.UserRoleStudent {
		t.Errorf("unexpected identity %+v", who)
	}
	if who.Method != AuthTypeBearer {
		t.Errorf("Method = %q, want bearer", who.Method)
	}
}

func TestMiddleware_BearerAuth_DeletedUser(t *testing.T) {
	m, tokens, db := setupMiddleware(t)
	user := seedUser(t, db, "S201", entities.UserRoleStudent, true)
	token, _, _ := tokens.Issue(user)
	db.Model(user).Update("is_deleted", true)

	router := identityRouter(m)
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if who := decodeIdentity(t, rr); who.IsAuthenticated() {
		t.Errorf("token of a deleted user must not authenticate, got %+v", who)
	}
}

func TestMiddleware_BearerAuth_InvalidHeaders(t *testing.T) {
	m, _, _ := setupMiddleware(t)
	router := identityRouter(m)

	for _, header := range []string{"Bearer invalid-token", "Bearer", "Basic dXNlcjpwYXNz", "Bearer   "} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			req.Header.Set("Authorization", header)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if who := decodeIdentity(t, rr); who.IsAuthenticated() {
				t.Errorf("expected anonymous identity for %q", header)
			}
		})
	}
}

func TestMiddleware_SessionAuth(t *testing.T) {
	m, _, db := setupMiddleware(t)
	user := seedUser(t, db, "L300", entities.UserRoleLibrarian, true)

	router := newRouter(m)
	router.POST("/login", func(c *gin.Context) {
		if err := m.sessionManager.CreateSession(c.Request, user); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	router.GET("/api/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, IdentityFrom(c))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	who := decodeIdentity(t, rr)
	if who.UserID != user.ID || who.Role != entities.UserRoleLibrarian || who.Method != AuthTypeSession {
		t.Errorf("unexpected identity %+v", who)
	}
}

func TestMiddleware_SessionAuth_RoleChanged(t *testing.T) {
	m, _, db := setupMiddleware(t)
	user := seedUser(t, db, "L301", entities.UserRoleLibrarian, true)

	router := newRouter(m)
	router.POST("/login", func(c *gin.Context) {
		if err := m.sessionManager.CreateSession(c.Request, user); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	router.GET("/api/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, IdentityFrom(c))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	db.Model(user).Update("role", entities.UserRoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if who := decodeIdentity(t, rr); who.IsAuthenticated() {
		t.Errorf("session opened under another role must not authenticate, got %+v", who)
	}
}

func TestMiddleware_RequireAuth(t *testing.T) {
	m, tokens, db := setupMiddleware(t)
	user := seedUser(t, db, "F400", entities.UserRoleFaculty, true)
	token, _, _ := tokens.Issue(user)

	router := newRouter(m)
	router.GET("/api/protected", m.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/dashboard", m.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("API without auth returns 401", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/protected", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rr.Code)
		}
	})

	t.Run("browser without auth redirects to login", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard?tab=loans", nil))
		if rr.Code != http.StatusFound {
			t.Fatalf("Expected 302, got %d", rr.Code)
		}
		want := "/login?next=" + url.QueryEscape("/dashboard?tab=loans")
		if loc := rr.Header().Get("Location"); loc != want {
			t.Errorf("Location = %q, want %q", loc, want)
		}
	})

	t.Run("JSON accept header returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Accept", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rr.Code)
		}
	})

	t.Run("bearer token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware_RequireRole(t *testing.T) {
	m, tokens, db := setupMiddleware(t)
	student := seedUser(t, db, "S500", entities.UserRoleStudent, true)
	librarian := seedUser(t, db, "L500", entities.UserRoleLibrarian, true)
	admin := seedUser(t, db, "A500", entities.UserRoleAdmin, true)

	router := newRouter(m)
	router.GET("/api/staff", m.RequireRole(entities.UserRoleLibrarian, entities.UserRoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name string
		user *entities.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"student", student, http.StatusForbidden},
		{"librarian", librarian, http.StatusOK},
		{"admin", admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/staff", nil)
			if tt.user != nil {
				token, _, err := tokens.Issue(tt.user)
				if err != nil {
					t.Fatalf("Issue() error = %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestIdentityFrom_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	who := IdentityFrom(c)
	if who.IsAuthenticated() {
		t.Error("empty context should be anonymous")
	}
	if who.HasRole(entities.UserRoleAdmin) {
		t.Error("anonymous identity has no roles")
	}
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		path   string
		header map[string]string
		want   bool
	}{
		{"/api/books", nil, true},
		{"/dashboard", nil, false},
		{"/dashboard", map[string]string{"Accept": "application/json"}, true},
		{"/dashboard", map[string]string{"Authorization": "Bearer x"}, true},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
		for k, v := range tt.header {
			c.Request.Header.Set(k, v)
		}
		if got := isAPIRequest(c); got != tt.want {
			t.Errorf("isAPIRequest(%s, %v) = %v, want %v", tt.path, tt.header, got, tt.want)
		}
	}
}
