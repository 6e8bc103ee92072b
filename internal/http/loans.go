package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/loans"
	"github.com/mrlokans/library-manager/internal/validation"
)

const dateLayout = "2006-01-02"

// LoansController exposes the book record workflow.
type LoansController struct {
	workflow LoanWorkflow
	queries  LoanQueries
}

func NewLoansController(workflow LoanWorkflow, queries LoanQueries) *LoansController {
	return &LoansController{
		workflow: workflow,
		queries:  queries,
	}
}

// RequestBookRequest is the body of POST /api/loans.
type RequestBookRequest struct {
	BookID   uint   `json:"book_id" form:"book_id"`
	Days     int    `json:"days" form:"days"`
	FromDate string `json:"from_date" form:"from_date"`
	ToDate   string `json:"to_date" form:"to_date"`
}

func (r RequestBookRequest) toInput() (loans.RequestInput, error) {
	in := loans.RequestInput{BookID: r.BookID, Days: r.Days}
	errs := validation.Errors{}
	parse := func(field, value string) *time.Time {
		if value = strings.TrimSpace(value); value == "" {
			return nil
		}
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			errs.Add(field, field+" must be a date in YYYY-MM-DD format")
			return nil
		}
		return &t
	}
	in.FromDate = parse("from_date", r.FromDate)
	in.ToDate = parse("to_date", r.ToDate)
	return in, errs.Err()
}

// RenewRequest is the optional body of POST /api/loans/:id/renew.
type RenewRequest struct {
	Days int `json:"days" form:"days"`
}

// RequestBook handles POST /api/loans
func (lc *LoansController) RequestBook(c *gin.Context) {
	var req RequestBookRequest
	if !bindInput(c, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondServiceError(c, err, "request book")
		return
	}

	record, err := lc.workflow.RequestBook(c.Request.Context(), identity(c), in)
	if err != nil {
		respondServiceError(c, err, "request book")
		return
	}
	respondCreated(c, record)
}

// Approve handles POST /api/loans/:id/approve
func (lc *LoansController) Approve(c *gin.Context) {
	lc.transition(c, "approve", lc.workflow.Approve)
}

// Reject handles POST /api/loans/:id/reject
func (lc *LoansController) Reject(c *gin.Context) {
	lc.transition(c, "reject", lc.workflow.Reject)
}

// RequestReturn handles POST /api/loans/:id/return
func (lc *LoansController) RequestReturn(c *gin.Context) {
	lc.transition(c, "request return", lc.workflow.RequestReturn)
}

// Cancel handles POST /api/loans/:id/cancel
func (lc *LoansController) Cancel(c *gin.Context) {
	lc.transition(c, "cancel", lc.workflow.Cancel)
}

// RequestRenewal handles POST /api/loans/:id/renew
func (lc *LoansController) RequestRenewal(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RenewRequest
	if c.Request.ContentLength > 0 && !bindInput(c, &req) {
		return
	}

	record, err := lc.workflow.RequestRenewal(c.Request.Context(), identity(c), id, req.Days)
	if err != nil {
		respondServiceError(c, err, "request renewal")
		return
	}
	c.JSON(http.StatusOK, record)
}

type transitionFunc func(ctx context.Context, who auth.Identity, recordID uint) (*entities.BookRecord, error)

func (lc *LoansController) transition(c *gin.Context, name string, apply transitionFunc) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := apply(c.Request.Context(), identity(c), id)
	if err != nil {
		respondServiceError(c, err, name)
		return
	}
	c.JSON(http.StatusOK, record)
}

// MyLoans handles GET /api/loans/mine
func (lc *LoansController) MyLoans(c *gin.Context) {
	records, err := lc.queries.ListForUser(identity(c).UserID)
	if err != nil {
		respondInternalError(c, err, "list loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// OpenLoans handles GET /api/loans/open
func (lc *LoansController) OpenLoans(c *gin.Context) {
	records, err := lc.queries.ListOpenForUser(identity(c).UserID)
	if err != nil {
		respondInternalError(c, err, "list open loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// Requests handles GET /api/loans/requests, the staff work queue.
func (lc *LoansController) Requests(c *gin.Context) {
	records, err := lc.queries.ListActionable()
	if err != nil {
		respondInternalError(c, err, "list requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// Renewals handles GET /api/loans/renewals
func (lc *LoansController) Renewals(c *gin.Context) {
	records, err := lc.queries.ListRenewalRequests()
	if err != nil {
		respondInternalError(c, err, "list renewals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// RenewalHistory handles GET /api/loans/:id/renewals
func (lc *LoansController) RenewalHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	history, err := lc.queries.RenewalHistory(id)
	if err != nil {
		respondInternalError(c, err, "renewal history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"renewals": history})
}
