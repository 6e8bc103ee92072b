package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/database"
	"github.com/mrlokans/library-manager/internal/database/announcements"
	"github.com/mrlokans/library-manager/internal/database/books"
	loanstore "github.com/mrlokans/library-manager/internal/database/loans"
	"github.com/mrlokans/library-manager/internal/database/reports"
	"github.com/mrlokans/library-manager/internal/database/users"
	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/loans"
	"github.com/mrlokans/library-manager/internal/logging"
	"github.com/mrlokans/library-manager/internal/mail"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeNotifier) Enqueue(_ context.Context, msg mail.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "task-1", nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// apiFixture is the full router over a temporary database, authenticated
// with bearer tokens.
type apiFixture struct {
	router   *gin.Engine
	db       *database.Database
	tokens   *auth.TokenIssuer
	notifier *fakeNotifier
	loans    *loans.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db := setupTestDB(t)
	authCfg := config.Auth{BcryptCost: 4, MaxLoginAttempts: 5, RateLimitWindow: time.Minute, LockoutDuration: time.Minute, GeneratedPasswordLength: 10}

	authService := auth.NewService(db.DB, authCfg)
	notifier := &fakeNotifier{}
	authService.SetNotifier(notifier, mail.Sender{AppName: "Library"})

	tokens := auth.NewTokenIssuer([]byte("api-secret"), "library-manager", time.Hour)
	loanService := loans.NewService(db.DB, config.Loans{}, nil, logging.Discard())

	router := NewRouter(RouterConfig{
		Version:        "test",
		Logger:         logging.Discard(),
		Database:       db,
		Books:          books.NewRepository(db.DB),
		LoanWorkflow:   loanService,
		LoanQueries:    loanstore.NewRepository(db.DB),
		Users:          users.NewRepository(db.DB),
		Accounts:       authService,
		Announcements:  announcements.NewRepository(db.DB),
		Reports:        reports.NewRepository(db.DB),
		AuthMiddleware: auth.NewMiddleware(authService, nil, tokens),
		Tokens:         tokens,
	})

	return &apiFixture{router: router, db: db, tokens: tokens, notifier: notifier, loans: loanService}
}

func (f *apiFixture) seedUser(t *testing.T, login string, role entities.UserRole) *entities.User {
	t.Helper()
	user := &entities.User{
		LoginID:    &login,
		FullName:   login + " User",
		Email:      login + "@example.com",
		Role:       role,
		IsApproved: true,
	}
	require.NoError(t, f.db.DB.Create(user).Error)
	return user
}

func (f *apiFixture) seedBook(t *testing.T, title string, quantity int) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Author: "Author", Department: "CS", BookCode: "CS-" + title, Quantity: quantity}
	require.NoError(t, f.db.DB.Create(book).Error)
	return book
}

func (f *apiFixture) token(t *testing.T, user *entities.User) string {
	t.Helper()
	token, _, err := f.tokens.Issue(user)
	require.NoError(t, err)
	return token
}

// do sends body as JSON, authenticated with token when given.
func (f *apiFixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), "body: %s", w.Body.String())
}

func (f *apiFixture) record(t *testing.T, id uint) entities.BookRecord {
	t.Helper()
	var rec entities.BookRecord
	require.NoError(t, f.db.DB.First(&rec, id).Error)
	return rec
}

func (f *apiFixture) quantity(t *testing.T, bookID uint) int {
	t.Helper()
	var book entities.Book
	require.NoError(t, f.db.DB.First(&book, bookID).Error)
	return book.Quantity
}


func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
