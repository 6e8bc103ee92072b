// Package audit records who did what to loans, users and the catalog.
package audit

import (
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/database/audit"
	"github.com/mrlokans/library-manager/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	logger  *logrus.Entry
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{repo: repo, logger: logger.WithField("component", "audit")}
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.Save(event); err != nil {
			s.logger.WithError(err).WithField("action", event.Action).Warn("failed to log audit event")
		}
	}()
}

// Flush blocks until background writes have finished.
func (s *Service) Flush() {
	s.pending.Wait()
}

// LogLoan records a book record transition or request.
func (s *Service) LogLoan(actorID uint, action string, recordID uint, description string, err error) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventLoan,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  entities.AuditEntityBookRecord,
		Status:      entities.AuditStatusSuccess,
	}
	if recordID != 0 {
		event.EntityID = &recordID
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogUser records an administrative action on an account.
func (s *Service) LogUser(actorID uint, action string, userID uint, description string, err error) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventUser,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  entities.AuditEntityUser,
		EntityID:    &userID,
		Status:      entities.AuditStatusSuccess,
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogCatalog records a change to a book.
func (s *Service) LogCatalog(actorID uint, action string, bookID uint, title string, err error) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventCatalog,
		Action:      action,
		Description: truncate(title, 500),
		EntityType:  entities.AuditEntityBook,
		Status:      entities.AuditStatusSuccess,
	}
	if bookID != 0 {
		event.EntityID = &bookID
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogAnnouncement records a new announcement.
func (s *Service) LogAnnouncement(actorID, announcementID uint, title string, audience entities.AudienceType) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventAnnouncement,
		Action:      "announcement_create",
		Description: truncate(title, 500),
		EntityType:  entities.AuditEntityAnnouncement,
		EntityID:    &announcementID,
		Status:      entities.AuditStatusSuccess,
	}
	if md, e := json.Marshal(map[string]any{"audience": audience}); e == nil {
		event.Metadata = string(md)
	}
	s.LogAsync(event)
}

// LogNotification records the outcome of a notification job.
func (s *Service) LogNotification(action, description string, sent int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventNotification,
		Action:      action,
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
	}
	if md, e := json.Marshal(map[string]any{"sent": sent}); e == nil {
		event.Metadata = string(md)
	}
	withError(event, err)
	s.LogAsync(event)
}

// SearchEvents pages through events for the admin audit view.
func (s *Service) SearchEvents(f entities.AuditFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.Search(f, limit, offset)
}

// EntityHistory lists the events recorded against one entity.
func (s *Service) EntityHistory(entityType string, entityID uint) ([]entities.AuditEvent, error) {
	return s.repo.EntityHistory(entityType, entityID)
}

// LoanTimeline lists the workflow events of one book record.
func (s *Service) LoanTimeline(recordID uint) ([]entities.AuditEvent, error) {
	return s.repo.LoanTimeline(recordID)
}

// DeleteOldEvents removes events older than the retention period.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	return s.repo.Prune(time.Now().Add(-retention))
}

func withError(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
