package database

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewSQLiteDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_MigratesAllTables(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"users", "books", "book_records", "renewal_requests", "announcements", "audit_events"} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}
	assert.NoError(t, db.Ping(context.Background()))
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"}, nil)
	assert.Error(t, err)

	_, err = NewDatabase(config.Database{Driver: config.DriverMySQL}, nil)
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestNewDatabase_GormLogsThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})

	db, err := NewDatabase(config.Database{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "log.db")}, logrus.NewEntry(log))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	buf.Reset()

	// Not found is expected by repositories and stays quiet.
	var user entities.User
	assert.ErrorIs(t, db.DB.First(&user, 999).Error, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	assert.Error(t, db.DB.Exec("SELECT * FROM missing_shelf").Error)
	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "component=gorm")
	assert.Contains(t, out, "missing_shelf")
}

func TestNewDatabase_OneOpenRequestPerBook(t *testing.T) {
	db := setupTestDB(t)

	user := entities.User{FullName: "Reader", Email: "r@example.com", Role: entities.UserRoleStudent}
	require.NoError(t, db.DB.Create(&user).Error)
	book := entities.Book{Title: "T", Author: "A", Department: "D", BookCode: "C", Quantity: 1}
	require.NoError(t, db.DB.Create(&book).Error)

	first := entities.BookRecord{BookID: book.ID, UserID: user.ID, Status: entities.LoanStatusPending}
	require.NoError(t, db.DB.Create(&first).Error)

	dup := entities.BookRecord{BookID: book.ID, UserID: user.ID, Status: entities.LoanStatusPending}
	assert.ErrorIs(t, db.DB.Create(&dup).Error, gorm.ErrDuplicatedKey)

	closed := entities.BookRecord{BookID: book.ID, UserID: user.ID, Status: entities.LoanStatusSubmitted}
	assert.NoError(t, db.DB.Create(&closed).Error, "closed records do not count")
}

func TestBook_AvailabilityFollowsQuantity(t *testing.T) {
	db := setupTestDB(t)

	book := entities.Book{Title: "T", Author: "A", Department: "D", BookCode: "C", Quantity: 2}
	require.NoError(t, db.DB.Create(&book).Error)
	assert.True(t, book.IsAvailable)

	book.Quantity = 0
	require.NoError(t, db.DB.Save(&book).Error)

	var reloaded entities.Book
	require.NoError(t, db.DB.First(&reloaded, book.ID).Error)
	assert.False(t, reloaded.IsAvailable)
	assert.Equal(t, "Issued", reloaded.Status())
	assert.Equal(t, entities.DefaultBookImage, reloaded.ImagePath())
}
