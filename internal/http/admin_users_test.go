package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/entities"
)

func (f *apiFixture) seedPending(t *testing.T, email string, role entities.UserRole) *entities.User {
	t.Helper()
	user := &entities.User{FullName: "Pending " + string(role), Email: email, Role: role}
	require.NoError(t, f.db.DB.Create(user).Error)
	return user
}

func TestAdminUsersController_Approvals(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.token(t, f.seedUser(t, "admin", entities.UserRoleAdmin))
	librarian := f.token(t, f.seedUser(t, "L600", entities.UserRoleLibrarian))
	student := f.seedPending(t, "new.student@example.com", entities.UserRoleStudent)
	f.seedPending(t, "new.faculty@example.com", entities.UserRoleFaculty)

	t.Run("librarians cannot approve users", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/admin/approvals", nil, librarian)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin sees pending users grouped by role", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/admin/approvals", nil, admin)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Students []entities.User `json:"students"`
			Faculty  []entities.User `json:"faculty"`
		}
		decodeJSON(t, w, &body)
		assert.Len(t, body.Students, 1)
		assert.Len(t, body.Faculty, 1)
	})

	t.Run("approval emails credentials", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/admin/users/"+itoa(student.ID)+"/approve", nil, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body map[string]any
		decodeJSON(t, w, &body)
		assert.Equal(t, "task-1", body["task_id"])
		assert.Equal(t, 1, f.notifier.count())

		var stored entities.User
		require.NoError(t, f.db.DB.First(&stored, student.ID).Error)
		assert.True(t, stored.IsApproved)
		assert.NotEmpty(t, stored.PasswordHash)
	})

	t.Run("approving twice conflicts", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/admin/users/"+itoa(student.ID)+"/approve", nil, admin)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/admin/users/9999/approve", nil, admin)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminUsersController_ApproveNotificationFailure(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.token(t, f.seedUser(t, "admin", entities.UserRoleAdmin))
	pending := f.seedPending(t, "unlucky@example.com", entities.UserRoleFaculty)
	f.notifier.err = errors.New("queue unavailable")

	w := f.do(t, http.MethodPost, "/api/admin/users/"+itoa(pending.ID)+"/approve", nil, admin)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var stored entities.User
	require.NoError(t, f.db.DB.First(&stored, pending.ID).Error)
	assert.False(t, stored.IsApproved, "a failed notification leaves the user pending")
}

func TestAdminUsersController_Reject(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.token(t, f.seedUser(t, "admin", entities.UserRoleAdmin))
	pending := f.seedPending(t, "rejected@example.com", entities.UserRoleStudent)

	w := f.do(t, http.MethodPost, "/api/admin/users/"+itoa(pending.ID)+"/reject", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/admin/approvals", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "rejected@example.com")
}

func TestAdminUsersController_ManageUsers(t *testing.T) {
	f := newAPIFixture(t)
	adminUser := f.seedUser(t, "admin", entities.UserRoleAdmin)
	admin := f.token(t, adminUser)
	member := f.seedUser(t, "S700", entities.UserRoleStudent)
	f.seedUser(t, "F700", entities.UserRoleFaculty)

	t.Run("lists by role", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/admin/users?role=Student", nil, admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/admin/users?role=Janitor", nil, admin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("details include issued books", func(t *testing.T) {
		book := f.seedBook(t, "Issued Title", 1)
		require.NoError(t, f.db.DB.Create(&entities.BookRecord{
			BookID: book.ID, UserID: member.ID, LoginID: "S700", Status: entities.LoanStatusIssued,
		}).Error)

		w := f.do(t, http.MethodGet, "/api/admin/users/"+itoa(member.ID), nil, admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Issued Title")
	})

	t.Run("edit sets a new password", func(t *testing.T) {
		body := map[string]any{
			"full_name": "Renamed Student", "password": "brandnew99", "confirm_password": "brandnew99",
		}
		w := f.do(t, http.MethodPut, "/api/admin/users/"+itoa(member.ID), body, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var stored entities.User
		require.NoError(t, f.db.DB.First(&stored, member.ID).Error)
		assert.Equal(t, "Renamed Student", stored.FullName)
		assert.NoError(t, auth.CheckPassword("brandnew99", stored.PasswordHash))
	})

	t.Run("mismatched passwords are rejected", func(t *testing.T) {
		body := map[string]any{"password": "brandnew99", "confirm_password": "different1"}
		w := f.do(t, http.MethodPut, "/api/admin/users/"+itoa(member.ID), body, admin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/admin/users/"+itoa(adminUser.ID), nil, admin)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("deleted users lose access", func(t *testing.T) {
		memberToken := f.token(t, member)

		w := f.do(t, http.MethodDelete, "/api/admin/users/"+itoa(member.ID), nil, admin)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodGet, "/api/profile", nil, memberToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestProfileController(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, "F800", entities.UserRoleFaculty)
	hash, err := auth.HashPassword("original1", 4)
	require.NoError(t, err)
	require.NoError(t, f.db.DB.Model(user).Update("password_hash", hash).Error)
	token := f.token(t, user)

	t.Run("reads own profile", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/profile", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "F800@example.com")
		assert.NotContains(t, w.Body.String(), "password_hash")
	})

	t.Run("updates contact details", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/profile", map[string]any{"phone": "5550199", "date_of_birth": "1990-05-17"}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var stored entities.User
		require.NoError(t, f.db.DB.First(&stored, user.ID).Error)
		assert.Equal(t, "5550199", stored.Phone)
		require.NotNil(t, stored.DateOfBirth)
		assert.Equal(t, 1990, stored.DateOfBirth.Year())
	})

	t.Run("wrong current password", func(t *testing.T) {
		body := map[string]any{"current_password": "nottheone", "new_password": "changed12", "confirm_password": "changed12"}
		w := f.do(t, http.MethodPost, "/api/profile/password", body, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "current_password")
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		body := map[string]any{"current_password": "original1", "new_password": "changed12", "confirm_password": "changed13"}
		w := f.do(t, http.MethodPost, "/api/profile/password", body, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "confirm_password")
	})

	t.Run("changes the password", func(t *testing.T) {
		body := map[string]any{"current_password": "original1", "new_password": "changed12", "confirm_password": "changed12"}
		w := f.do(t, http.MethodPost, "/api/profile/password", body, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var stored entities.User
		require.NoError(t, f.db.DB.First(&stored, user.ID).Error)
		assert.NoError(t, auth.CheckPassword("changed12", stored.PasswordHash))
	})
}
