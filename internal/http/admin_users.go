package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/database/users"
	"github.com/mrlokans/library-manager/internal/validation"
)

// AdminUsersController handles registration approval and user administration.
type AdminUsersController struct {
	users    UserStore
	accounts AccountService
	auditor  ActivityAuditor
}

// NewAdminUsersController creates the admin controller. auditor may be nil.
func NewAdminUsersController(users UserStore, accounts AccountService, auditor ActivityAuditor) *AdminUsersController {
	return &AdminUsersController{
		users:    users,
		accounts: accounts,
		auditor:  auditor,
	}
}

// EditUserRequest is the admin edit form. Password is optional and must be
// repeated in ConfirmPassword when given.
type EditUserRequest struct {
	FullName         *string `json:"full_name" form:"full_name"`
	Email            *string `json:"email" form:"email"`
	Phone            *string `json:"phone" form:"phone"`
	Gender           *string `json:"gender" form:"gender"`
	Department       *string `json:"department" form:"department"`
	Semester         *string `json:"semester" form:"semester"`
	Year             *string `json:"year" form:"year"`
	EnrollmentNumber *string `json:"enrollment_number" form:"enrollment_number"`
	Address          *string `json:"address" form:"address"`
	Password         string  `json:"password" form:"password"`
	ConfirmPassword  string  `json:"confirm_password" form:"confirm_password"`
}

func (r EditUserRequest) validate() error {
	errs := validation.Errors{}
	if r.FullName != nil {
		errs.Required("full_name", *r.FullName)
	}
	if r.Email != nil {
		errs.Email("email", *r.Email)
	}
	if r.Password != "" && r.Password != r.ConfirmPassword {
		errs.Add("confirm_password", "passwords do not match")
	}
	return errs.Err()
}

// PendingApprovals handles GET /api/admin/approvals
func (ac *AdminUsersController) PendingApprovals(c *gin.Context) {
	pending, err := ac.users.PendingApprovals()
	if err != nil {
		respondInternalError(c, err, "pending approvals")
		return
	}
	c.JSON(http.StatusOK, pending)
}

// Approve handles POST /api/admin/users/:id/approve. The credentials email is
// queued in the same transaction, so a queue failure leaves the user pending.
func (ac *AdminUsersController) Approve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := ac.accounts.ApproveUser(c.Request.Context(), identity(c), id)
	if err != nil {
		respondServiceError(c, err, "approve user")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "user approved, credentials sent by email",
		"user":    result.User,
		"task_id": result.TaskID,
	})
}

// Reject handles POST /api/admin/users/:id/reject
func (ac *AdminUsersController) Reject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ac.accounts.RejectRegistration(c.Request.Context(), identity(c), id); err != nil {
		respondServiceError(c, err, "reject user")
		return
	}
	respondSuccess(c, "registration rejected")
}

// ListUsers handles GET /api/admin/users?role=&search=
func (ac *AdminUsersController) ListUsers(c *gin.Context) {
	list, err := ac.users.List(c.Query("role"), c.Query("search"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
}

// GetUser handles GET /api/admin/users/:id
func (ac *AdminUsersController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	details, err := ac.users.Details(id)
	if err != nil {
		respondServiceError(c, err, "user details")
		return
	}
	c.JSON(http.StatusOK, details)
}

// UpdateUser handles PUT /api/admin/users/:id
func (ac *AdminUsersController) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req EditUserRequest
	if !bindInput(c, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondServiceError(c, err, "update user")
		return
	}

	user, err := ac.users.UpdateProfile(id, users.ProfileUpdate{
		FullName:         req.FullName,
		Email:            req.Email,
		Phone:            req.Phone,
		Gender:           req.Gender,
		Department:       req.Department,
		Semester:         req.Semester,
		Year:             req.Year,
		EnrollmentNumber: req.EnrollmentNumber,
		Address:          req.Address,
	})
	if err != nil {
		ac.audit(c, "user_update", id, "", err)
		respondServiceError(c, err, "update user")
		return
	}

	if req.Password != "" {
		if err := ac.accounts.SetPassword(id, req.Password); err != nil {
			ac.audit(c, "user_password_set", id, "", err)
			respondServiceError(c, err, "set password")
			return
		}
		ac.audit(c, "user_password_set", id, "Password changed by admin", nil)
	}

	ac.audit(c, "user_update", id, fmt.Sprintf("Updated %s", user.FullName), nil)
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /api/admin/users/:id. Users are flagged, never removed.
func (ac *AdminUsersController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id == identity(c).UserID {
		respondError(c, http.StatusConflict, "you cannot delete your own account")
		return
	}

	if err := ac.users.SoftDelete(id); err != nil {
		ac.audit(c, "user_delete", id, "", err)
		respondServiceError(c, err, "delete user")
		return
	}
	ac.audit(c, "user_delete", id, "User deleted", nil)
	respondSuccess(c, "user deleted")
}

func (ac *AdminUsersController) audit(c *gin.Context, action string, userID uint, description string, err error) {
	if ac.auditor != nil {
		ac.auditor.LogUser(identity(c).UserID, action, userID, description, err)
	}
}
