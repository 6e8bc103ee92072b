package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library-manager/internal/entities"
)

func TestBooksController_Browse(t *testing.T) {
	f := newAPIFixture(t)
	f.seedBook(t, "Algorithms", 2)
	physics := &entities.Book{Title: "Optics", Author: "Hecht", Department: "Physics", BookCode: "PH-1", Quantity: 0}
	require.NoError(t, f.db.DB.Create(physics).Error)

	t.Run("lists every book without a filter", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/books", nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Books []entities.Book `json:"books"`
			Count int             `json:"count"`
		}
		decodeJSON(t, w, &body)
		assert.Equal(t, 2, body.Count)
	})

	t.Run("filters by category", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/books?category=Physics", nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Books []entities.Book `json:"books"`
		}
		decodeJSON(t, w, &body)
		require.Len(t, body.Books, 1)
		assert.Equal(t, "Optics", body.Books[0].Title)
	})

	t.Run("lists categories", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/books/categories", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Physics")
		assert.Contains(t, w.Body.String(), "CS")
	})

	t.Run("shows availability on the detail view", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/books/"+itoa(physics.ID), nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		decodeJSON(t, w, &body)
		assert.Equal(t, "Issued", body["status"])
		assert.Equal(t, entities.DefaultBookImage, body["image"])
	})

	t.Run("returns 404 for an unknown book", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/books/999", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 400 for a malformed id", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/books/abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_CRUD(t *testing.T) {
	f := newAPIFixture(t)
	librarian := f.token(t, f.seedUser(t, "L100", entities.UserRoleLibrarian))
	student := f.token(t, f.seedUser(t, "S100", entities.UserRoleStudent))

	payload := map[string]any{
		"title": "Compilers", "author": "Aho", "department": "CS",
		"book_code": "CS-77", "quantity": 3, "price": 42.5,
	}

	t.Run("anonymous create returns 401", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/books", payload, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("student create returns 403", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/books", payload, student)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing fields return validation details", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/books", map[string]any{"title": "x"}, librarian)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var body ErrorResponse
		decodeJSON(t, w, &body)
		assert.Equal(t, "validation", body.Code)
		assert.Contains(t, w.Body.String(), "author")
	})

	var created entities.Book
	t.Run("librarian creates a book", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/books", payload, librarian)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		decodeJSON(t, w, &created)
		assert.NotZero(t, created.ID)
		assert.True(t, created.IsAvailable)
	})

	t.Run("librarian updates the book", func(t *testing.T) {
		update := map[string]any{
			"title": "Compilers 2nd ed", "author": "Aho", "department": "CS",
			"book_code": "CS-77", "quantity": 0,
		}
		w := f.do(t, http.MethodPut, "/api/books/"+itoa(created.ID), update, librarian)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var book entities.Book
		decodeJSON(t, w, &book)
		assert.Equal(t, "Compilers 2nd ed", book.Title)
		assert.False(t, book.IsAvailable)
	})

	t.Run("deleting hides the book", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/books/"+itoa(created.ID), nil, librarian)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodGet, "/api/books/"+itoa(created.ID), nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBooksController_DeleteWithCopyOnLoan(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.token(t, f.seedUser(t, "A100", entities.UserRoleAdmin))
	borrower := f.seedUser(t, "S101", entities.UserRoleStudent)
	book := f.seedBook(t, "Networks", 1)

	require.NoError(t, f.db.DB.Create(&entities.BookRecord{
		BookID: book.ID, UserID: borrower.ID, LoginID: "S101", Status: entities.LoanStatusIssued,
	}).Error)

	w := f.do(t, http.MethodDelete, "/api/books/"+itoa(book.ID), nil, admin)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBooksController_Search(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.db.DB.Create(&entities.Book{
		Title: "Linear Algebra", Author: "Strang", Department: "Maths", ISBN: "9780980232776", BookCode: "MA-1", Quantity: 1,
	}).Error)
	f.seedBook(t, "Databases", 1)

	w := f.do(t, http.MethodGet, "/api/books/search?author=strang", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Books []entities.Book `json:"books"`
	}
	decodeJSON(t, w, &body)
	require.Len(t, body.Books, 1)
	assert.Equal(t, "Linear Algebra", body.Books[0].Title)
}
