// Package loans implements the book record workflow: requesting a copy,
// issuing it, renewing it and taking it back.
package loans

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/library-manager/internal/entities"
)

// Action is a request to move a BookRecord to another status.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionRequestReturn  Action = "request_return"
	ActionRequestRenewal Action = "request_renewal"
	ActionCancel         Action = "cancel"
)

// IsStaffAction reports whether only librarians and admins may perform the action.
func (a Action) IsStaffAction() bool {
	return a == ActionApprove || a == ActionReject
}

// RenewalEffect describes what happens to the renewal decision log.
type RenewalEffect int

const (
	RenewalNone RenewalEffect = iota
	RenewalOpen
	RenewalApprove
	RenewalReject
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Policy holds the loan periods applied on issue and renewal.
type Policy struct {
	IssuePeriod   time.Duration
	RenewalPeriod time.Duration
}

// DefaultPolicy issues for 14 days and renews for 7.
func DefaultPolicy() Policy {
	return Policy{
		IssuePeriod:   14 * 24 * time.Hour,
		RenewalPeriod: 7 * 24 * time.Hour,
	}
}

// Decision is the outcome of applying an Action to a record.
// Nil time fields leave the stored value untouched.
type Decision struct {
	From          entities.LoanStatus
	To            entities.LoanStatus
	IssuedAt      *time.Time
	DueAt         *time.Time
	ReturnedAt    *time.Time
	RenewedAt     *time.Time
	ResetNotified bool
	QuantityDelta int
	Renewal       RenewalEffect
}

// Decide validates action against the record's current status and returns
// the resulting changes. It has no side effects.
//
//	Pending/Requested  + approve         -> Issued (due in IssuePeriod, one copy out)
//	Pending/Requested  + reject          -> Rejected
//	Pending/Requested  + cancel          -> Cancelled
//	Issued             + request_return  -> ReturnRequested
//	Issued (with due)  + request_renewal -> RenewalRequested
//	ReturnRequested    + approve         -> Submitted (one copy back)
//	RenewalRequested   + approve         -> Issued (due date extended by RenewalPeriod)
//	RenewalRequested   + reject          -> Rejected
//	Rejected (copy out)+ request_return  -> ReturnRequested
func Decide(record entities.BookRecord, action Action, now time.Time, policy Policy) (Decision, error) {
	d := Decision{From: record.Status}

	switch record.Status {
	case entities.LoanStatusPending, entities.LoanStatusRequested:
		switch action {
		case ActionApprove:
			due := now.Add(policy.IssuePeriod)
			d.To = entities.LoanStatusIssued
			d.IssuedAt = &now
			d.DueAt = &due
			d.QuantityDelta = -1
			return d, nil
		case ActionReject:
			d.To = entities.LoanStatusRejected
			return d, nil
		case ActionCancel:
			d.To = entities.LoanStatusCancelled
			return d, nil
		}

	case entities.LoanStatusIssued:
		switch action {
		case ActionRequestReturn:
			d.To = entities.LoanStatusReturnRequested
			return d, nil
		case ActionRequestRenewal:
			if record.DueAt == nil {
				return Decision{}, invalid(record.Status, action, "loan has no due date")
			}
			d.To = entities.LoanStatusRenewalRequested
			d.Renewal = RenewalOpen
			return d, nil
		}

	case entities.LoanStatusReturnRequested:
		if action == ActionApprove {
			d.To = entities.LoanStatusSubmitted
			d.ReturnedAt = &now
			d.QuantityDelta = 1
			return d, nil
		}

	case entities.LoanStatusRenewalRequested:
		switch action {
		case ActionApprove:
			base := now
			if record.DueAt != nil {
				base = *record.DueAt
			}
			due := base.Add(policy.RenewalPeriod)
			d.To = entities.LoanStatusIssued
			d.DueAt = &due
			d.RenewedAt = &now
			d.ResetNotified = true
			d.Renewal = RenewalApprove
			return d, nil
		case ActionReject:
			d.To = entities.LoanStatusRejected
			d.Renewal = RenewalReject
			return d, nil
		}

	case entities.LoanStatusRejected:
		// A rejected renewal leaves the copy with the borrower, who still has to return it.
		if action == ActionRequestReturn && record.HoldsCopy() {
			d.To = entities.LoanStatusReturnRequested
			return d, nil
		}

	case entities.LoanStatusSubmitted, entities.LoanStatusCancelled:
		// terminal
	}

	return Decision{}, invalid(record.Status, action, "")
}

func invalid(from entities.LoanStatus, action Action, reason string) error {
	if reason != "" {
		return fmt.Errorf("%w: cannot %s a %s record: %s", ErrInvalidTransition, action, from, reason)
	}
	return fmt.Errorf("%w: cannot %s a %s record", ErrInvalidTransition, action, from)
}

// Apply copies the decision onto record.
func (d Decision) Apply(record *entities.BookRecord) {
	record.Status = d.To
	if d.IssuedAt != nil {
		record.IssuedAt = d.IssuedAt
	}
	if d.DueAt != nil {
		record.DueAt = d.DueAt
	}
	if d.ReturnedAt != nil {
		record.ReturnedAt = d.ReturnedAt
	}
	if d.RenewedAt != nil {
		record.RenewedAt = d.RenewedAt
	}
	if d.ResetNotified {
		record.Notified = false
	}
}
