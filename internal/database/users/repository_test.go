package users

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library-manager/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "users.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.BookRecord{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db), db
}

func createUser(t *testing.T, db *gorm.DB, name, email string, role entities.UserRole, approved bool) entities.User {
	t.Helper()
	u := entities.User{FullName: name, Email: email, Role: role, IsApproved: approved, RegisteredAt: time.Now()}
	if approved {
		login := email
		u.LoginID = &login
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestRepository_PendingApprovals(t *testing.T) {
	repo, db := setupTestDB(t)

	createUser(t, db, "Sam Student", "sam@example.com", entities.UserRoleStudent, false)
	createUser(t, db, "Fay Faculty", "fay@example.com", entities.UserRoleFaculty, false)
	createUser(t, db, "Approved", "ok@example.com", entities.UserRoleStudent, true)
	gone := createUser(t, db, "Gone", "gone@example.com", entities.UserRoleLibrarian, false)
	require.NoError(t, repo.SoftDelete(gone.ID))

	pending, err := repo.PendingApprovals()
	require.NoError(t, err)

	require.Len(t, pending.Students, 1)
	assert.Equal(t, "Sam Student", pending.Students[0].FullName)
	assert.Len(t, pending.Faculty, 1)
	assert.Empty(t, pending.Librarians)
}

func TestRepository_List(t *testing.T) {
	repo, db := setupTestDB(t)

	createUser(t, db, "Alice Archer", "alice@example.com", entities.UserRoleStudent, true)
	createUser(t, db, "Bob Binder", "bob@example.com", entities.UserRoleFaculty, true)
	deleted := createUser(t, db, "Alice Ghost", "ghost@example.com", entities.UserRoleStudent, true)
	require.NoError(t, repo.SoftDelete(deleted.ID))

	t.Run("all roles", func(t *testing.T) {
		users, err := repo.List("All", "")
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("role filter", func(t *testing.T) {
		users, err := repo.List("faculty", "")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "Bob Binder", users[0].FullName)
	})

	t.Run("search excludes soft deleted", func(t *testing.T) {
		users, err := repo.List("", "ALICE")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice@example.com", users[0].Email)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := repo.List("wizard", "")
		assert.Error(t, err)
	})
}

func TestRepository_SoftDeleteKeepsRow(t *testing.T) {
	repo, db := setupTestDB(t)
	u := createUser(t, db, "Kept", "kept@example.com", entities.UserRoleStudent, true)

	require.NoError(t, repo.SoftDelete(u.ID))

	stored, err := repo.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)

	count, err := repo.CountByRole("")
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.SoftDelete(9999), ErrUserNotFound)
}

func TestRepository_Details(t *testing.T) {
	repo, db := setupTestDB(t)
	u := createUser(t, db, "Holder", "holder@example.com", entities.UserRoleStudent, true)

	out := entities.Book{Title: "Out On Loan", Author: "A", Department: "D", BookCode: "1", Quantity: 1}
	back := entities.Book{Title: "Already Back", Author: "A", Department: "D", BookCode: "2", Quantity: 1}
	require.NoError(t, db.Create(&out).Error)
	require.NoError(t, db.Create(&back).Error)
	now := time.Now()
	require.NoError(t, db.Create(&entities.BookRecord{BookID: out.ID, UserID: u.ID, Status: entities.LoanStatusIssued, IssuedAt: &now}).Error)
	require.NoError(t, db.Create(&entities.BookRecord{BookID: back.ID, UserID: u.ID, Status: entities.LoanStatusSubmitted, IssuedAt: &now, ReturnedAt: &now}).Error)
	kept := entities.Book{Title: "Renewal Refused", Author: "A", Department: "D", BookCode: "3", Quantity: 1}
	require.NoError(t, db.Create(&kept).Error)
	earlier := now.Add(-time.Hour)
	require.NoError(t, db.Create(&entities.BookRecord{BookID: kept.ID, UserID: u.ID, Status: entities.LoanStatusRejected, IssuedAt: &earlier}).Error)

	details, err := repo.Details(u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Out On Loan", "Renewal Refused"}, details.IssuedBooks)
}

func TestRepository_UpdateProfile(t *testing.T) {
	repo, db := setupTestDB(t)
	u := createUser(t, db, "Old Name", "old@example.com", entities.UserRoleStudent, true)
	createUser(t, db, "Other", "taken@example.com", entities.UserRoleStudent, true)

	name := "  New Name "
	phone := "555-0100"
	updated, err := repo.UpdateProfile(u.ID, ProfileUpdate{FullName: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "old@example.com", updated.Email)

	taken := "taken@example.com"
	_, err = repo.UpdateProfile(u.ID, ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailInUse)
}
