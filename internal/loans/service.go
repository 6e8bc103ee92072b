package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/validation"
)

// Auditor records workflow outcomes.
type Auditor interface {
	LogLoan(actorID uint, action string, recordID uint, description string, err error)
}

// RequestInput describes a borrower's request for a book.
type RequestInput struct {
	BookID   uint
	Days     int
	FromDate *time.Time
	ToDate   *time.Time
}

// Service applies loan requests and status transitions to the database.
// Every transition runs in one transaction guarded by the record's current
// status, so two concurrent approvals of the same record cannot both succeed.
type Service struct {
	db             *gorm.DB
	policy         Policy
	maxRequestDays int
	auditor        Auditor
	logger         *logrus.Entry
	now            func() time.Time
}

// NewService creates a loan service. auditor may be nil.
func NewService(db *gorm.DB, cfg config.Loans, auditor Auditor, logger *logrus.Entry) *Service {
	policy := DefaultPolicy()
	if cfg.IssueDays > 0 {
		policy.IssuePeriod = time.Duration(cfg.IssueDays) * 24 * time.Hour
	}
	if cfg.RenewalDays > 0 {
		policy.RenewalPeriod = time.Duration(cfg.RenewalDays) * 24 * time.Hour
	}
	maxDays := cfg.MaxRequestDays
	if maxDays <= 0 {
		maxDays = 30
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Service{
		db:             db,
		policy:         policy,
		maxRequestDays: maxDays,
		auditor:        auditor,
		logger:         logger.WithField("component", "loans"),
		now:            time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Policy returns the loan periods in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// RequestBook creates a Pending record for the caller.
func (s *Service) RequestBook(ctx context.Context, who auth.Identity, in RequestInput) (*entities.BookRecord, error) {
	if !who.IsAuthenticated() {
		return nil, ErrForbidden
	}

	errs := validation.Errors{}
	if in.BookID == 0 {
		errs.Add("book_id", "book_id is required")
	}
	if in.Days < 0 || in.Days > s.maxRequestDays {
		errs.Add("days", fmt.Sprintf("days must be between 1 and %d", s.maxRequestDays))
	}
	days := in.Days
	if in.FromDate != nil && in.ToDate != nil {
		if in.ToDate.Before(*in.FromDate) {
			errs.Add("to_date", "to_date must not be before from_date")
		} else if days == 0 {
			days = int(in.ToDate.Sub(*in.FromDate).Hours()/24) + 1
			if days > s.maxRequestDays {
				errs.Add("to_date", fmt.Sprintf("requested period must not exceed %d days", s.maxRequestDays))
			}
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if days == 0 {
		days = int(s.policy.IssuePeriod.Hours() / 24)
	}

	now := s.now()
	var record entities.BookRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, in.BookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("failed to load book: %w", err)
		}

		var user entities.User
		if err := tx.First(&user, who.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserInactive
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		if !user.IsActive() {
			return ErrUserInactive
		}

		var open int64
		err := tx.Model(&entities.BookRecord{}).
			Where("user_id = ? AND book_id = ? AND status IN ?", user.ID, book.ID,
				[]entities.LoanStatus{entities.LoanStatusPending, entities.LoanStatusRequested}).
			Count(&open).Error
		if err != nil {
			return fmt.Errorf("failed to check open requests: %w", err)
		}
		if open > 0 {
			return ErrAlreadyRequested
		}

		record = entities.BookRecord{
			BookID:        book.ID,
			UserID:        user.ID,
			LoginID:       user.Login(),
			RequestedAt:   now,
			RequestedDays: days,
			FromDate:      in.FromDate,
			ToDate:        in.ToDate,
			Status:        entities.LoanStatusPending,
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRequested
			}
			return fmt.Errorf("failed to create book record: %w", err)
		}
		record.Book = book
		return nil
	})

	if err != nil {
		s.audit(who.UserID, "loan_request", record.ID, fmt.Sprintf("request for book %d", in.BookID), err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"record_id": record.ID,
		"book_id":   record.BookID,
		"user_id":   record.UserID,
	}).Info("book requested")
	s.audit(who.UserID, "loan_request", record.ID, "Requested "+record.Book.Title, nil)

	return &record, nil
}

// Approve issues a pending request, confirms a return or grants a renewal.
func (s *Service) Approve(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error) {
	return s.Transition(ctx, who, recordID, ActionApprove, 0)
}

// Reject declines a pending request or renewal.
func (s *Service) Reject(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error) {
	return s.Transition(ctx, who, recordID, ActionReject, 0)
}

// RequestReturn asks the library to take the copy back.
func (s *Service) RequestReturn(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error) {
	return s.Transition(ctx, who, recordID, ActionRequestReturn, 0)
}

// RequestRenewal asks for the due date to be extended. days is recorded on
// the renewal log; the extension granted is always the policy's renewal period.
func (s *Service) RequestRenewal(ctx context.Context, who auth.Identity, recordID uint, days int) (*entities.BookRecord, error) {
	if days < 0 || days > s.maxRequestDays {
		return nil, validation.Single("days", fmt.Sprintf("days must be between 1 and %d", s.maxRequestDays))
	}
	return s.Transition(ctx, who, recordID, ActionRequestRenewal, days)
}

// Cancel withdraws the caller's own pending request.
func (s *Service) Cancel(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error) {
	return s.Transition(ctx, who, recordID, ActionCancel, 0)
}

// Transition applies action to a record on behalf of who.
func (s *Service) Transition(ctx context.Context, who auth.Identity, recordID uint, action Action, renewalDays int) (*entities.BookRecord, error) {
	if !who.IsAuthenticated() {
		return nil, ErrForbidden
	}

	now := s.now()
	var decision Decision
	var record entities.BookRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("failed to load book record: %w", err)
		}

		if action.IsStaffAction() {
			if !who.Role.IsStaff() {
				return ErrForbidden
			}
		} else if record.UserID != who.UserID {
			return ErrForbidden
		}

		d, err := Decide(record, action, now, s.policy)
		if err != nil {
			return err
		}
		decision = d

		if err := s.persist(tx, record, d, who, renewalDays, now); err != nil {
			return err
		}

		d.Apply(&record)
		return tx.Preload("Book").Preload("User").First(&record, record.ID).Error
	})

	if err != nil {
		s.audit(who.UserID, "loan_"+string(action), recordID, fmt.Sprintf("%s on record %d", action, recordID), err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"record_id": record.ID,
		"action":    action,
		"from":      decision.From,
		"to":        decision.To,
		"actor_id":  who.UserID,
	}).Info("book record transitioned")
	s.audit(who.UserID, "loan_"+string(action), record.ID,
		fmt.Sprintf("%s: %s -> %s", record.Book.Title, decision.From, decision.To), nil)

	return &record, nil
}

// persist writes a decision using conditional updates so stale reads fail
// instead of overwriting a concurrent change.
func (s *Service) persist(tx *gorm.DB, record entities.BookRecord, d Decision, who auth.Identity, renewalDays int, now time.Time) error {
	updates := map[string]any{"status": d.To}
	if d.IssuedAt != nil {
		updates["issued_at"] = *d.IssuedAt
	}
	if d.DueAt != nil {
		updates["due_at"] = *d.DueAt
	}
	if d.ReturnedAt != nil {
		updates["returned_at"] = *d.ReturnedAt
	}
	if d.RenewedAt != nil {
		updates["renewed_at"] = *d.RenewedAt
	}
	if d.ResetNotified {
		updates["notified"] = false
	}

	res := tx.Model(&entities.BookRecord{}).
		Where("id = ? AND status = ?", record.ID, d.From).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update book record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	switch {
	case d.QuantityDelta < 0:
		// gorm orders map assignments by key, so is_available sees the old quantity.
		res := tx.Model(&entities.Book{}).
			Where("id = ? AND quantity > 0", record.BookID).
			UpdateColumns(map[string]any{
				"is_available": gorm.Expr("quantity > 1"),
				"quantity":     gorm.Expr("quantity - 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to take copy from stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrBookUnavailable
		}
	case d.QuantityDelta > 0:
		res := tx.Model(&entities.Book{}).Unscoped().
			Where("id = ?", record.BookID).
			UpdateColumns(map[string]any{
				"is_available": true,
				"quantity":     gorm.Expr("quantity + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to return copy to stock: %w", res.Error)
		}
	}

	switch d.Renewal {
	case RenewalOpen:
		if renewalDays <= 0 {
			renewalDays = int(s.policy.RenewalPeriod.Hours() / 24)
		}
		renewal := entities.RenewalRequest{
			BookRecordID:  record.ID,
			UserID:        record.UserID,
			LoginID:       record.LoginID,
			RequestedDays: renewalDays,
			RequestedAt:   now,
		}
		if err := tx.Create(&renewal).Error; err != nil {
			return fmt.Errorf("failed to log renewal request: %w", err)
		}
	case RenewalApprove, RenewalReject:
		approved := d.Renewal == RenewalApprove
		err := tx.Model(&entities.RenewalRequest{}).
			Where("book_record_id = ? AND is_approved IS NULL", record.ID).
			Updates(map[string]any{
				"is_approved": approved,
				"approved_at": now,
				"reviewed_by": who.LoginID,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to close renewal request: %w", err)
		}
	}

	return nil
}

func (s *Service) audit(actorID uint, action string, recordID uint, description string, err error) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogLoan(actorID, action, recordID, description, err)
}
