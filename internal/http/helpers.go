package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/database/books"
	"github.com/mrlokans/library-manager/internal/database/users"
	"github.com/mrlokans/library-manager/internal/loans"
	"github.com/mrlokans/library-manager/internal/validation"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	requestLogger(c).WithError(err).WithField("context", context).Error("internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps an error returned by a repository or service onto
// the HTTP status the clients rely on.
func respondServiceError(c *gin.Context, err error, context string) {
	if errs, ok := validation.As(err); ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Code: "validation", Details: errs})
		return
	}

	switch {
	case errors.Is(err, books.ErrBookNotFound),
		errors.Is(err, loans.ErrBookNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, loans.ErrRecordNotFound):
		respondNotFound(c, "book record")
	case errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		respondNotFound(c, "user")
	case errors.Is(err, loans.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "invalid_transition"})
	case errors.Is(err, loans.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "stale_state"})
	case errors.Is(err, loans.ErrAlreadyRequested),
		errors.Is(err, loans.ErrBookUnavailable),
		errors.Is(err, books.ErrBookHasActiveLoans),
		errors.Is(err, users.ErrEmailInUse),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrAlreadyApproved):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, loans.ErrForbidden),
		errors.Is(err, loans.ErrUserInactive),
		errors.Is(err, auth.ErrForbidden):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong):
		respondBadRequest(c, err.Error())
	case errors.Is(err, auth.ErrNotificationFailed),
		errors.Is(err, auth.ErrNotifierUnavailable):
		requestLogger(c).WithError(err).WithField("context", context).Warn("notification failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "notification_failed"})
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePage reads a 1-based page number and a bounded page size from the query.
func parsePage(c *gin.Context, defaultSize, maxSize int) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSize)))
	if size < 1 || size > maxSize {
		size = defaultSize
	}
	return page, size
}

// bindInput accepts either a JSON body or form fields.
func bindInput(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		respondBadRequest(c, "invalid request body")
		return false
	}
	return true
}

func requestLogger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func identity(c *gin.Context) auth.Identity {
	return auth.IdentityFrom(c)
}
