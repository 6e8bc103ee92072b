package http

import (
	"context"
	"io"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/database/announcements"
	"github.com/mrlokans/library-manager/internal/database/books"
	"github.com/mrlokans/library-manager/internal/database/reports"
	"github.com/mrlokans/library-manager/internal/database/users"
	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/loans"
)

// This file consolidates the store interfaces used by HTTP controllers.
// Each controller depends only on the methods it calls.

// --- Catalog ---

// BookStore is the catalog repository.
type BookStore interface {
	GetBookByID(id uint) (*entities.Book, error)
	CreateBook(in books.Input) (*entities.Book, error)
	UpdateBook(id uint, in books.Input) (*entities.Book, error)
	DeleteBook(id uint) error
	Browse(category, search string) ([]entities.Book, error)
	Search(q books.SearchQuery) ([]entities.Book, error)
	Categories() ([]string, error)
	Featured(limit int) ([]entities.Book, error)
}

// --- Loans ---

// LoanWorkflow moves book records through their statuses.
type LoanWorkflow interface {
	RequestBook(ctx context.Context, who auth.Identity, in loans.RequestInput) (*entities.BookRecord, error)
	Approve(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error)
	Reject(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error)
	RequestReturn(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error)
	RequestRenewal(ctx context.Context, who auth.Identity, recordID uint, days int) (*entities.BookRecord, error)
	Cancel(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error)
}

// LoanQueries lists book records.
type LoanQueries interface {
	ListForUser(userID uint) ([]entities.BookRecord, error)
	ListOpenForUser(userID uint) ([]entities.BookRecord, error)
	ListActionable() ([]entities.BookRecord, error)
	ListRenewalRequests() ([]entities.BookRecord, error)
	RenewalHistory(recordID uint) ([]entities.RenewalRequest, error)
}

// --- Users ---

// UserStore is the user administration repository.
type UserStore interface {
	GetUserByID(id uint) (*entities.User, error)
	PendingApprovals() (*users.PendingByRole, error)
	List(role, search string) ([]entities.User, error)
	Details(id uint) (*users.Details, error)
	UpdateProfile(id uint, upd users.ProfileUpdate) (*entities.User, error)
	SoftDelete(id uint) error
}

// AccountService covers the credential operations of the auth service.
type AccountService interface {
	ApproveUser(ctx context.Context, admin auth.Identity, userID uint) (*auth.ApprovalResult, error)
	RejectRegistration(ctx context.Context, admin auth.Identity, userID uint) error
	ChangePassword(userID uint, oldPassword, newPassword string) error
	SetPassword(userID uint, newPassword string) error
}

// --- Announcements ---

type AnnouncementStore interface {
	Create(createdBy string, in announcements.Input) (*entities.Announcement, error)
	List() ([]entities.Announcement, error)
	Latest(limit int) ([]entities.Announcement, error)
	ForRole(role entities.UserRole, limit int) ([]entities.Announcement, error)
}

// --- Reports ---

type ReportStore interface {
	Dashboard() (*reports.Dashboard, error)
	IssuedBooks(page, pageSize int) (*reports.IssuedBooksPage, error)
	ExportIssuedBooksCSV(w io.Writer) error
	Overdue(now time.Time) ([]entities.BookRecord, error)
}

// --- Tasks and audit ---

// TaskStatusReader reports the state of a queued task.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// AuditReader reads the audit log.
type AuditReader interface {
	SearchEvents(f entities.AuditFilter, limit, offset int) ([]entities.AuditEvent, int64, error)
	EntityHistory(entityType string, entityID uint) ([]entities.AuditEvent, error)
	LoanTimeline(recordID uint) ([]entities.AuditEvent, error)
}

// ActivityAuditor records administrative actions taken through the API.
type ActivityAuditor interface {
	LogCatalog(actorID uint, action string, bookID uint, title string, err error)
	LogUser(actorID uint, action string, userID uint, description string, err error)
	LogAnnouncement(actorID, announcementID uint, title string, audience entities.AudienceType)
}
