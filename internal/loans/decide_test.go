package loans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library-manager/internal/entities"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestDecide_AllowedTransitions(t *testing.T) {
	policy := DefaultPolicy()
	due := testNow.Add(3 * 24 * time.Hour)

	tests := []struct {
		name   string
		record entities.BookRecord
		action Action
		want   entities.LoanStatus
		delta  int
	}{
		{"pending approve", entities.BookRecord{Status: entities.LoanStatusPending}, ActionApprove, entities.LoanStatusIssued, -1},
		{"legacy requested approve", entities.BookRecord{Status: entities.LoanStatusRequested}, ActionApprove, entities.LoanStatusIssued, -1},
		{"pending reject", entities.BookRecord{Status: entities.LoanStatusPending}, ActionReject, entities.LoanStatusRejected, 0},
		{"pending cancel", entities.BookRecord{Status: entities.LoanStatusPending}, ActionCancel, entities.LoanStatusCancelled, 0},
		{"issued return", entities.BookRecord{Status: entities.LoanStatusIssued, DueAt: &due}, ActionRequestReturn, entities.LoanStatusReturnRequested, 0},
		{"issued renew", entities.BookRecord{Status: entities.LoanStatusIssued, DueAt: &due}, ActionRequestRenewal, entities.LoanStatusRenewalRequested, 0},
		{"return approve", entities.BookRecord{Status: entities.LoanStatusReturnRequested}, ActionApprove, entities.LoanStatusSubmitted, 1},
		{"renewal approve", entities.BookRecord{Status: entities.LoanStatusRenewalRequested, DueAt: &due}, ActionApprove, entities.LoanStatusIssued, 0},
		{"renewal reject", entities.BookRecord{Status: entities.LoanStatusRenewalRequested, DueAt: &due}, ActionReject, entities.LoanStatusRejected, 0},
		{"rejected renewal returned", entities.BookRecord{Status: entities.LoanStatusRejected, IssuedAt: ptr(testNow)}, ActionRequestReturn, entities.LoanStatusReturnRequested, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(tt.record, tt.action, testNow, policy)
			require.NoError(t, err)
			assert.Equal(t, tt.record.Status, d.From)
			assert.Equal(t, tt.want, d.To)
			assert.Equal(t, tt.delta, d.QuantityDelta)
		})
	}
}

func TestDecide_RejectsEverythingElse(t *testing.T) {
	allowed := map[entities.LoanStatus][]Action{
		entities.LoanStatusPending:          {ActionApprove, ActionReject, ActionCancel},
		entities.LoanStatusRequested:        {ActionApprove, ActionReject, ActionCancel},
		entities.LoanStatusIssued:           {ActionRequestReturn, ActionRequestRenewal},
		entities.LoanStatusReturnRequested:  {ActionApprove},
		entities.LoanStatusRenewalRequested: {ActionApprove, ActionReject},
	}
	actions := []Action{ActionApprove, ActionReject, ActionRequestReturn, ActionRequestRenewal, ActionCancel}
	due := testNow.Add(time.Hour)

	for _, status := range entities.AllLoanStatuses {
		for _, action := range actions {
			ok := false
			for _, a := range allowed[status] {
				if a == action {
					ok = true
				}
			}
			if ok {
				continue
			}
			record := entities.BookRecord{Status: status, DueAt: &due}
			_, err := Decide(record, action, testNow, DefaultPolicy())
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s + %s", status, action)
		}
	}
}

func TestDecide_IssueSetsDueDate(t *testing.T) {
	d, err := Decide(entities.BookRecord{Status: entities.LoanStatusPending}, ActionApprove, testNow, DefaultPolicy())
	require.NoError(t, err)

	require.NotNil(t, d.IssuedAt)
	require.NotNil(t, d.DueAt)
	assert.Equal(t, testNow, *d.IssuedAt)
	assert.Equal(t, testNow.Add(14*24*time.Hour), *d.DueAt)
}

func TestDecide_RenewalExtendsExistingDueDate(t *testing.T) {
	due := testNow.Add(2 * 24 * time.Hour)
	record := entities.BookRecord{Status: entities.LoanStatusRenewalRequested, DueAt: &due, Notified: true}

	d, err := Decide(record, ActionApprove, testNow, DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, due.Add(7*24*time.Hour), *d.DueAt)
	assert.Equal(t, testNow, *d.RenewedAt)
	assert.True(t, d.ResetNotified)
	assert.Equal(t, RenewalApprove, d.Renewal)

	d.Apply(&record)
	assert.Equal(t, entities.LoanStatusIssued, record.Status)
	assert.False(t, record.Notified)
}

func TestDecide_RenewalNeedsDueDate(t *testing.T) {
	_, err := Decide(entities.BookRecord{Status: entities.LoanStatusIssued}, ActionRequestRenewal, testNow, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDecide_RejectedWithoutCopyCannotReturn(t *testing.T) {
	_, err := Decide(entities.BookRecord{Status: entities.LoanStatusRejected}, ActionRequestReturn, testNow, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	returned := entities.BookRecord{Status: entities.LoanStatusRejected, IssuedAt: ptr(testNow), ReturnedAt: ptr(testNow)}
	_, err = Decide(returned, ActionRequestReturn, testNow, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
