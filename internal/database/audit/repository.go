// Package audit stores and queries audit events.
package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/entities"
)

const defaultPageSize = 50

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save stores an event, stamping CreatedAt when the caller left it empty.
func (r *Repository) Save(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Search pages through events matching the filter, newest first, and
// returns the total number of matches.
func (r *Repository) Search(f entities.AuditFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	query := r.db.Model(&entities.AuditEvent{})
	if f.ActorID > 0 {
		query = query.Where("user_id = ?", f.ActorID)
	}
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		query = query.Where("created_at >= ?", f.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var events []entities.AuditEvent
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, total, nil
}

// EntityHistory lists events recorded against one book, user, book record
// or announcement, oldest first.
func (r *Repository) EntityHistory(entityType string, entityID uint) ([]entities.AuditEvent, error) {
	var events []entities.AuditEvent
	err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC, id ASC").Find(&events).Error
	return events, err
}

// LoanTimeline lists the workflow events of one book record, oldest first.
// Failed attempts are kept so staff can see rejected approvals.
func (r *Repository) LoanTimeline(recordID uint) ([]entities.AuditEvent, error) {
	var events []entities.AuditEvent
	err := r.db.Where("event_type = ? AND entity_type = ? AND entity_id = ?",
		entities.AuditEventLoan, entities.AuditEntityBookRecord, recordID).
		Order("created_at ASC, id ASC").Find(&events).Error
	return events, err
}

// Prune removes events created before cutoff and returns how many went.
func (r *Repository) Prune(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
