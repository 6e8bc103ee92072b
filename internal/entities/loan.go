package entities

import "time"

// LoanStatus is the state of a BookRecord in the issue workflow.
type LoanStatus string

const (
	LoanStatusPending          LoanStatus = "Pending"
	LoanStatusIssued           LoanStatus = "Issued"
	LoanStatusSubmitted        LoanStatus = "Submitted"
	LoanStatusCancelled        LoanStatus = "Cancelled"
	LoanStatusReturnRequested  LoanStatus = "ReturnRequested"
	LoanStatusRenewalRequested LoanStatus = "RenewalRequested"
	LoanStatusRejected         LoanStatus = "Rejected"
	// LoanStatusRequested is a legacy value treated as Pending.
	LoanStatusRequested LoanStatus = "Requested"
)

// AllLoanStatuses lists every persisted status value.
var AllLoanStatuses = []LoanStatus{
	LoanStatusPending,
	LoanStatusIssued,
	LoanStatusSubmitted,
	LoanStatusCancelled,
	LoanStatusReturnRequested,
	LoanStatusRenewalRequested,
	LoanStatusRejected,
	LoanStatusRequested,
}

// IsOpenRequest reports whether the record is an unanswered issue request.
func (s LoanStatus) IsOpenRequest() bool {
	return s == LoanStatusPending || s == LoanStatusRequested
}

// CopyOutCondition selects book_records whose copy is with the borrower. It
// takes CopyReturnedStatuses as its only argument and must agree with
// BookRecord.HoldsCopy.
const CopyOutCondition = "book_records.issued_at IS NOT NULL AND book_records.returned_at IS NULL AND book_records.status NOT IN ?"

// CopyReturnedStatuses are the statuses in which an issued copy is back on the shelf.
var CopyReturnedStatuses = []LoanStatus{LoanStatusSubmitted, LoanStatusCancelled}

// BookRecord is one loan of one copy, from request to return.
type BookRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BookID        uint       `gorm:"index;not null" json:"book_id"`
	Book          Book       `gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT" json:"book,omitempty"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	LoginID       string     `gorm:"size:100" json:"login_id"`
	RequestedAt   time.Time  `json:"requested_at"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
	DueAt         *time.Time `gorm:"index" json:"due_at,omitempty"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	RenewedAt     *time.Time `json:"renewed_at,omitempty"`
	RequestedDays int        `json:"requested_days"`
	FromDate      *time.Time `json:"from_date,omitempty"`
	ToDate        *time.Time `json:"to_date,omitempty"`
	Status        LoanStatus `gorm:"index;size:32;not null" json:"status"`
	Rating        *int       `json:"rating,omitempty"`
	Notified      bool       `gorm:"default:false" json:"notified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (BookRecord) TableName() string {
	return "book_records"
}

// HoldsCopy reports whether the borrower still has the copy. A rejected
// renewal keeps the copy out until it is returned.
func (r BookRecord) HoldsCopy() bool {
	if r.IssuedAt == nil || r.ReturnedAt != nil {
		return false
	}
	return r.Status != LoanStatusSubmitted && r.Status != LoanStatusCancelled
}

// IsOverdue reports whether the copy is still out past its due date.
func (r BookRecord) IsOverdue(now time.Time) bool {
	return r.HoldsCopy() && r.DueAt != nil && r.DueAt.Before(now)
}

// RenewalRequest is the decision log for a renewal of a BookRecord.
// The record's status drives the workflow; these rows only record outcomes.
// The upper bound on RequestedDays is the configured loan maximum, checked
// by the loans service.
type RenewalRequest struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BookRecordID  uint       `gorm:"index;not null" json:"book_record_id"`
	BookRecord    BookRecord `gorm:"foreignKey:BookRecordID;constraint:OnDelete:RESTRICT" json:"-"`
	UserID        uint       `gorm:"index" json:"user_id"`
	LoginID       string     `gorm:"size:100" json:"login_id"`
	RequestedDays int        `gorm:"check:requested_days >= 1" json:"requested_days"`
	RequestedAt   time.Time  `json:"requested_at"`
	IsApproved    *bool      `json:"is_approved,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ReviewedBy    string     `gorm:"size:100" json:"reviewed_by,omitempty"`
}

func (RenewalRequest) TableName() string {
	return "renewal_requests"
}

// IsPending reports whether no decision has been recorded yet.
func (r RenewalRequest) IsPending() bool {
	return r.IsApproved == nil
}
