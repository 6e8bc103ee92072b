// Package reports computes the read-only librarian reports.
package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/entities"
)

const (
	DefaultPageSize   = 10
	MostIssuedLimit   = 5
	csvDateLayout     = "02-01-2006"
	statusReturned    = "Returned"
	statusNotReturned = "Not Returned"
)

// CSVHeader is the first row of the issued books export.
var CSVHeader = []string{"BookTitle", "UserName", "UserRole", "IssuedAt", "ReturnedAt", "Status"}

var reportStatuses = []entities.LoanStatus{entities.LoanStatusIssued, entities.LoanStatusSubmitted}

type MostIssuedBook struct {
	BookName   string `json:"book_name"`
	IssueCount int64  `json:"issue_count"`
}

// Dashboard holds the librarian counters.
type Dashboard struct {
	TotalBooks      int64            `json:"total_books"`
	TotalIssued     int64            `json:"total_issued"`
	TotalSubmitted  int64            `json:"total_submitted"`
	PendingRequests int64            `json:"pending_requests"`
	TotalUsers      int64            `json:"total_users"`
	TotalStudents   int64            `json:"total_students"`
	TotalFaculty    int64            `json:"total_faculty"`
	TotalLibrarians int64            `json:"total_librarians"`
	MostIssuedBooks []MostIssuedBook `json:"most_issued_books"`
}

// IssuedBookRow is one line of the issued books report.
type IssuedBookRow struct {
	RecordID   uint       `json:"record_id"`
	BookID     uint       `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	UserName   string     `json:"user_name"`
	UserRole   string     `json:"user_role"`
	IssuedAt   *time.Time `json:"issued_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     string     `json:"status"`
}

// IssuedBooksPage is a page of the issued books report with its totals.
type IssuedBooksPage struct {
	Rows             []IssuedBookRow `json:"rows"`
	TotalIssued      int64           `json:"total_issued"`
	TotalReturned    int64           `json:"total_returned"`
	TotalNotReturned int64           `json:"total_not_returned"`
	CurrentPage      int             `json:"current_page"`
	PageSize         int             `json:"page_size"`
	TotalPages       int             `json:"total_pages"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Dashboard computes the librarian counters. Soft-deleted users are not counted.
func (r *Repository) Dashboard() (*Dashboard, error) {
	d := &Dashboard{MostIssuedBooks: []MostIssuedBook{}}

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&d.TotalBooks, r.db.Model(&entities.Book{})},
		{&d.TotalIssued, r.records().Where("status = ?", entities.LoanStatusIssued)},
		{&d.TotalSubmitted, r.records().Where("status = ?", entities.LoanStatusSubmitted)},
		{&d.PendingRequests, r.records().Where("status IN ?", []entities.LoanStatus{entities.LoanStatusPending, entities.LoanStatusRequested})},
		{&d.TotalUsers, r.users()},
		{&d.TotalStudents, r.users().Where("role = ?", entities.UserRoleStudent)},
		{&d.TotalFaculty, r.users().Where("role = ?", entities.UserRoleFaculty)},
		{&d.TotalLibrarians, r.users().Where("role = ?", entities.UserRoleLibrarian)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to compute dashboard: %w", err)
		}
	}

	err := r.db.Table("book_records").
		Select("books.title AS book_name, COUNT(*) AS issue_count").
		Joins("JOIN books ON books.id = book_records.book_id").
		Where("book_records.issued_at IS NOT NULL").
		Group("books.title").
		Order("issue_count DESC, books.title ASC").
		Limit(MostIssuedLimit).
		Scan(&d.MostIssuedBooks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute most issued books: %w", err)
	}

	return d, nil
}

func (r *Repository) records() *gorm.DB {
	return r.db.Model(&entities.BookRecord{})
}

func (r *Repository) users() *gorm.DB {
	return r.db.Model(&entities.User{}).Where("is_deleted = ?", false)
}

// IssuedBooks returns one page of issued and returned records, newest issue first.
// Pages are 1-based; out of range values are clamped.
func (r *Repository) IssuedBooks(page, pageSize int) (*IssuedBooksPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	result := &IssuedBooksPage{CurrentPage: page, PageSize: pageSize, Rows: []IssuedBookRow{}}
	if err := r.records().Where("status IN ?", reportStatuses).Count(&result.TotalIssued).Error; err != nil {
		return nil, err
	}
	if err := r.records().Where("status = ?", entities.LoanStatusSubmitted).Count(&result.TotalReturned).Error; err != nil {
		return nil, err
	}
	result.TotalNotReturned = result.TotalIssued - result.TotalReturned
	result.TotalPages = int(math.Ceil(float64(result.TotalIssued) / float64(pageSize)))

	rows, err := r.issuedRows(func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	})
	if err != nil {
		return nil, err
	}
	result.Rows = rows
	return result, nil
}

func (r *Repository) issuedRows(scope func(*gorm.DB) *gorm.DB) ([]IssuedBookRow, error) {
	var records []entities.BookRecord
	query := r.db.Preload("Book", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}).Preload("User").
		Where("status IN ?", reportStatuses).
		Order("issued_at DESC, id DESC")
	if scope != nil {
		query = scope(query)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load issued books: %w", err)
	}

	rows := make([]IssuedBookRow, 0, len(records))
	for _, rec := range records {
		status := statusNotReturned
		if rec.Status == entities.LoanStatusSubmitted {
			status = statusReturned
		}
		rows = append(rows, IssuedBookRow{
			RecordID:   rec.ID,
			BookID:     rec.BookID,
			BookTitle:  rec.Book.Title,
			UserName:   rec.User.FullName,
			UserRole:   string(rec.User.Role),
			IssuedAt:   rec.IssuedAt,
			ReturnedAt: rec.ReturnedAt,
			Status:     status,
		})
	}
	return rows, nil
}

// ExportIssuedBooksCSV writes every report row as CSV.
func (r *Repository) ExportIssuedBooksCSV(w io.Writer) error {
	rows, err := r.issuedRows(nil)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.BookTitle,
			row.UserName,
			row.UserRole,
			formatDate(row.IssuedAt, ""),
			formatDate(row.ReturnedAt, "-"),
			row.Status,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Overdue lists records whose copy is still out past its due date.
func (r *Repository) Overdue(now time.Time) ([]entities.BookRecord, error) {
	var records []entities.BookRecord
	err := r.db.Preload("Book", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}).Preload("User").
		Where(entities.CopyOutCondition, entities.CopyReturnedStatuses).
		Where("book_records.due_at IS NOT NULL AND book_records.due_at < ?", now).
		Order("due_at ASC").Find(&records).Error
	return records, err
}

func formatDate(t *time.Time, missing string) string {
	if t == nil {
		return missing
	}
	return t.Format(csvDateLayout)
}
