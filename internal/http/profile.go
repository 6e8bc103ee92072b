package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/database/users"
	"github.com/mrlokans/library-manager/internal/validation"
)

// ProfileController lets a signed-in user manage their own account.
type ProfileController struct {
	users    UserStore
	accounts AccountService
}

// NewProfileController creates a new ProfileController.
func NewProfileController(users UserStore, accounts AccountService) *ProfileController {
	return &ProfileController{
		users:    users,
		accounts: accounts,
	}
}

// ProfileUpdateRequest is the self-service subset of the user fields.
type ProfileUpdateRequest struct {
	FullName    *string `json:"full_name" form:"full_name"`
	Email       *string `json:"email" form:"email"`
	Phone       *string `json:"phone" form:"phone"`
	Address     *string `json:"address" form:"address"`
	DateOfBirth *string `json:"date_of_birth" form:"date_of_birth"`
}

func (r ProfileUpdateRequest) toUpdate() (users.ProfileUpdate, error) {
	upd := users.ProfileUpdate{
		FullName: r.FullName,
		Email:    r.Email,
		Phone:    r.Phone,
		Address:  r.Address,
	}
	errs := validation.Errors{}
	if r.FullName != nil {
		errs.Required("full_name", *r.FullName)
	}
	if r.Email != nil {
		errs.Email("email", *r.Email)
	}
	if r.DateOfBirth != nil && strings.TrimSpace(*r.DateOfBirth) != "" {
		dob, err := time.Parse(dateLayout, strings.TrimSpace(*r.DateOfBirth))
		if err != nil {
			errs.Add("date_of_birth", "date_of_birth must be a date in YYYY-MM-DD format")
		} else {
			upd.DateOfBirth = &dob
		}
	}
	return upd, errs.Err()
}

// PasswordChangeRequest is the body of POST /api/profile/password.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// GetProfile handles GET /api/profile
func (pc *ProfileController) GetProfile(c *gin.Context) {
	user, err := pc.users.GetUserByID(identity(c).UserID)
	if err != nil {
		respondServiceError(c, err, "load profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/profile
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	var req ProfileUpdateRequest
	if !bindInput(c, &req) {
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		respondServiceError(c, err, "update profile")
		return
	}

	user, err := pc.users.UpdateProfile(identity(c).UserID, upd)
	if err != nil {
		respondServiceError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles POST /api/profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	var req PasswordChangeRequest
	if !bindInput(c, &req) {
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		respondServiceError(c, validation.Single("confirm_password", "new passwords do not match"), "change password")
		return
	}

	err := pc.accounts.ChangePassword(identity(c).UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			respondServiceError(c, validation.Single("current_password", "current password is incorrect"), "change password")
			return
		}
		respondServiceError(c, err, "change password")
		return
	}
	respondSuccess(c, "password changed")
}
