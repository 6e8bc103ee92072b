package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/database/books"
)

type BooksController struct {
	store   BookStore
	auditor ActivityAuditor
}

// NewBooksController creates the catalog controller. auditor may be nil.
func NewBooksController(store BookStore, auditor ActivityAuditor) *BooksController {
	return &BooksController{
		store:   store,
		auditor: auditor,
	}
}

// ListBooks handles GET /api/books?category=&search=
func (bc *BooksController) ListBooks(c *gin.Context) {
	list, err := bc.store.Browse(c.Query("category"), c.Query("search"))
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": list, "count": len(list)})
}

// SearchBooks handles GET /api/books/search with optional title, author,
// category and isbn filters.
func (bc *BooksController) SearchBooks(c *gin.Context) {
	var q books.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "invalid search query")
		return
	}

	list, err := bc.store.Search(q)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": list, "count": len(list)})
}

// Categories handles GET /api/books/categories
func (bc *BooksController) Categories(c *gin.Context) {
	categories, err := bc.store.Categories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book, "status": book.Status(), "image": book.ImagePath()})
}

// CreateBook handles POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var in books.Input
	if !bindInput(c, &in) {
		return
	}

	book, err := bc.store.CreateBook(in)
	if err != nil {
		respondServiceError(c, err, "create book")
		return
	}
	bc.audit(c, "book_create", book.ID, book.Title, nil)
	respondCreated(c, book)
}

// UpdateBook handles PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in books.Input
	if !bindInput(c, &in) {
		return
	}

	book, err := bc.store.UpdateBook(id, in)
	if err != nil {
		respondServiceError(c, err, "update book")
		return
	}
	bc.audit(c, "book_update", book.ID, book.Title, nil)
	c.JSON(http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		bc.audit(c, "book_delete", id, "", err)
		respondServiceError(c, err, "delete book")
		return
	}
	bc.audit(c, "book_delete", id, "", nil)
	respondSuccess(c, "book deleted")
}

func (bc *BooksController) audit(c *gin.Context, action string, bookID uint, title string, err error) {
	if bc.auditor != nil {
		bc.auditor.LogCatalog(identity(c).UserID, action, bookID, title, err)
	}
}
