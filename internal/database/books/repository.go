// Package books provides database operations for the library catalog.
//
// Books are soft deleted so loan history keeps pointing at a row. A book
// cannot be deleted while any copy is out with a borrower.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	results, err := repo.Browse("Physics", "")
package books

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/validation"
)

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrBookHasActiveLoans = errors.New("book has copies on loan")
)

// Input carries the editable catalog fields.
type Input struct {
	Title      string   `json:"title" form:"title"`
	Author     string   `json:"author" form:"author"`
	Department string   `json:"department" form:"department"`
	ISBN       string   `json:"isbn" form:"isbn"`
	BookCode   string   `json:"book_code" form:"book_code"`
	Price      float64  `json:"price" form:"price"`
	Quantity   int      `json:"quantity" form:"quantity"`
	Images     []string `json:"images" form:"images"`
}

// Validate checks required fields and non-negative amounts.
func (in Input) Validate() error {
	errs := validation.Errors{}
	errs.Required("title", in.Title)
	errs.Required("author", in.Author)
	errs.Required("department", in.Department)
	errs.Required("book_code", in.BookCode)
	if in.Quantity < 0 {
		errs.Add("quantity", "quantity must not be negative")
	}
	if in.Price < 0 {
		errs.Add("price", "price must not be negative")
	}
	return errs.Err()
}

func (in Input) apply(book *entities.Book) {
	book.Title = strings.TrimSpace(in.Title)
	book.Author = strings.TrimSpace(in.Author)
	book.Department = strings.TrimSpace(in.Department)
	book.ISBN = strings.TrimSpace(in.ISBN)
	book.BookCode = strings.TrimSpace(in.BookCode)
	book.Price = in.Price
	book.Quantity = in.Quantity
	if in.Images != nil {
		book.Images = in.Images
	}
}

// SearchQuery is the advanced search form. Empty fields are ignored.
type SearchQuery struct {
	Title    string `form:"title"`
	Author   string `form:"author"`
	Category string `form:"category"`
	ISBN     string `form:"isbn"`
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBookByID retrieves a catalog entry.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// CreateBook validates and stores a new book.
func (r *Repository) CreateBook(in Input) (*entities.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	book := entities.Book{}
	in.apply(&book)
	if err := r.db.Create(&book).Error; err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return &book, nil
}

// UpdateBook replaces the editable fields of a book.
func (r *Repository) UpdateBook(id uint, in Input) (*entities.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	book, err := r.GetBookByID(id)
	if err != nil {
		return nil, err
	}
	in.apply(book)
	if err := r.db.Save(book).Error; err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return book, nil
}

// DeleteBook soft deletes a book that has no copies out.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		var active int64
		err := tx.Model(&entities.BookRecord{}).
			Where("book_records.book_id = ?", id).
			Where(entities.CopyOutCondition, entities.CopyReturnedStatuses).
			Count(&active).Error
		if err != nil {
			return fmt.Errorf("failed to check active loans: %w", err)
		}
		if active > 0 {
			return ErrBookHasActiveLoans
		}

		return tx.Delete(&book).Error
	})
}

// Browse lists books optionally filtered by category and a free-text term
// matched against title and author. Matching is case-insensitive.
func (r *Repository) Browse(category, search string) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{})
	if category = strings.TrimSpace(category); category != "" {
		query = query.Where("LOWER(department) LIKE ?", like(category))
	}
	if search = strings.TrimSpace(search); search != "" {
		term := like(search)
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", term, term)
	}

	var books []entities.Book
	if err := query.Order("title ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to browse books: %w", err)
	}
	return books, nil
}

// Search runs the advanced search.
func (r *Repository) Search(q SearchQuery) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{})
	if v := strings.TrimSpace(q.Title); v != "" {
		query = query.Where("LOWER(title) LIKE ?", like(v))
	}
	if v := strings.TrimSpace(q.Author); v != "" {
		query = query.Where("LOWER(author) LIKE ?", like(v))
	}
	if v := strings.TrimSpace(q.Category); v != "" {
		query = query.Where("LOWER(department) LIKE ?", like(v))
	}
	if v := strings.TrimSpace(q.ISBN); v != "" {
		query = query.Where("isbn LIKE ?", "%"+v+"%")
	}

	var books []entities.Book
	if err := query.Order("title ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	return books, nil
}

// Categories returns the distinct departments in the catalog.
func (r *Repository) Categories() ([]string, error) {
	categories := []string{}
	err := r.db.Model(&entities.Book{}).
		Distinct("department").
		Order("department ASC").
		Pluck("department", &categories).Error
	return categories, err
}

// Featured picks up to limit random books that have copies on the shelf.
func (r *Repository) Featured(limit int) ([]entities.Book, error) {
	if limit <= 0 {
		limit = 6
	}
	random := "RANDOM()"
	if r.db.Dialector.Name() == "mysql" {
		random = "RAND()"
	}

	var books []entities.Book
	err := r.db.Where("is_available = ?", true).Order(random).Limit(limit).Find(&books).Error
	return books, err
}

// CountBooks counts catalog entries.
func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

func like(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
