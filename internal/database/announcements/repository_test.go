package announcements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/validation"
)

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Announcement{}))
	return NewRepository(db)
}

func TestRepository_Create(t *testing.T) {
	repo := setupTestDB(t)

	a, err := repo.Create("librarian1", Input{Title: "Closed Friday", Message: "Stocktake"})
	require.NoError(t, err)
	assert.Equal(t, entities.AudienceAll, a.Audience)
	assert.Equal(t, "librarian1", a.CreatedBy)

	a, err = repo.Create("librarian1", Input{Title: "Exams", Message: "Quiet hours", Audience: "student"})
	require.NoError(t, err)
	assert.Equal(t, entities.AudienceStudent, a.Audience)

	_, err = repo.Create("librarian1", Input{Audience: "aliens"})
	details, ok := validation.As(err)
	require.True(t, ok)
	assert.Len(t, details, 3)
}

func TestRepository_LatestAndForRole(t *testing.T) {
	repo := setupTestDB(t)

	for _, in := range []Input{
		{Title: "one", Message: "m", Audience: "All"},
		{Title: "two", Message: "m", Audience: "Student"},
		{Title: "three", Message: "m", Audience: "Faculty"},
		{Title: "four", Message: "m", Audience: "All"},
		{Title: "five", Message: "m", Audience: "Librarian"},
		{Title: "six", Message: "m", Audience: "Student"},
	} {
		_, err := repo.Create("staff", in)
		require.NoError(t, err)
	}

	latest, err := repo.Latest(0)
	require.NoError(t, err)
	require.Len(t, latest, DefaultLatest)
	assert.Equal(t, "six", latest[0].Title)

	all, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, all, 6)

	students, err := repo.ForRole(entities.UserRoleStudent, 5)
	require.NoError(t, err)
	var titles []string
	for _, a := range students {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"six", "four", "two", "one"}, titles)

	faculty, err := repo.ForRole(entities.UserRoleFaculty, 5)
	require.NoError(t, err)
	assert.Len(t, faculty, 3)

	admin, err := repo.ForRole(entities.UserRoleAdmin, 10)
	require.NoError(t, err)
	assert.Len(t, admin, 6)
}
