// Package loans provides read queries over book records and renewal requests.
//
// State changes go through the loans service in internal/loans; this package
// only lists records and flips the overdue notification flag.
package loans

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/entities"
)

// ActionableStatuses are the states a librarian has to act on.
var ActionableStatuses = []entities.LoanStatus{
	entities.LoanStatusPending,
	entities.LoanStatusRequested,
	entities.LoanStatusRenewalRequested,
	entities.LoanStatusReturnRequested,
}

// Repository handles book record queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) withRelations() *gorm.DB {
	return r.db.Preload("Book", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}).Preload("User")
}

// ListForUser returns every record of a user, newest request first.
func (r *Repository) ListForUser(userID uint) ([]entities.BookRecord, error) {
	var records []entities.BookRecord
	err := r.withRelations().Where("user_id = ?", userID).
		Order("requested_at DESC, id DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records for user %d: %w", userID, err)
	}
	return records, nil
}

// ListOpenForUser returns records that have not been returned and are still live.
func (r *Repository) ListOpenForUser(userID uint) ([]entities.BookRecord, error) {
	var records []entities.BookRecord
	err := r.withRelations().
		Where("user_id = ? AND returned_at IS NULL AND status NOT IN ?", userID, []entities.LoanStatus{
			entities.LoanStatusCancelled,
			entities.LoanStatusSubmitted,
		}).
		Where("NOT (status = ? AND issued_at IS NULL)", entities.LoanStatusRejected).
		Order("requested_at DESC, id DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open records for user %d: %w", userID, err)
	}
	return records, nil
}

// ListActionable returns records waiting for a staff decision, oldest first.
func (r *Repository) ListActionable() ([]entities.BookRecord, error) {
	var records []entities.BookRecord
	err := r.withRelations().Where("status IN ?", ActionableStatuses).
		Order("requested_at ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list actionable records: %w", err)
	}
	return records, nil
}

// ListRenewalRequests returns records with an open renewal.
func (r *Repository) ListRenewalRequests() ([]entities.BookRecord, error) {
	var records []entities.BookRecord
	err := r.withRelations().Where("status = ?", entities.LoanStatusRenewalRequested).
		Order("updated_at ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list renewal requests: %w", err)
	}
	return records, nil
}

// ListOverdue returns records whose copy is still out past its due date.
func (r *Repository) ListOverdue(now time.Time) ([]entities.BookRecord, error) {
	var records []entities.BookRecord
	err := r.withRelations().
		Where(entities.CopyOutCondition, entities.CopyReturnedStatuses).
		Where("book_records.due_at IS NOT NULL AND book_records.due_at < ?", now).
		Order("due_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue records: %w", err)
	}
	return records, nil
}

// ListOverdueUnnotified is ListOverdue restricted to records nobody has been reminded about.
func (r *Repository) ListOverdueUnnotified(now time.Time) ([]entities.BookRecord, error) {
	var records []entities.BookRecord
	err := r.withRelations().
		Where(entities.CopyOutCondition, entities.CopyReturnedStatuses).
		Where("book_records.due_at IS NOT NULL AND book_records.due_at < ? AND book_records.notified = ?", now, false).
		Order("due_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue records: %w", err)
	}
	return records, nil
}

// MarkNotified flags records as reminded.
func (r *Repository) MarkNotified(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Model(&entities.BookRecord{}).Where("id IN ?", ids).Update("notified", true)
	return res.RowsAffected, res.Error
}

// RenewalHistory lists renewal decisions for one record, oldest first.
func (r *Repository) RenewalHistory(recordID uint) ([]entities.RenewalRequest, error) {
	var renewals []entities.RenewalRequest
	err := r.db.Where("book_record_id = ?", recordID).
		Order("requested_at ASC, id ASC").Find(&renewals).Error
	return renewals, err
}
