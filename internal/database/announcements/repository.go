// Package announcements stores notices shown on the role dashboards.
package announcements

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/validation"
)

// DefaultLatest is how many announcements the dashboards show.
const DefaultLatest = 5

// Input is a new announcement. An empty audience means everyone.
type Input struct {
	Title    string `json:"title" form:"title"`
	Message  string `json:"message" form:"message"`
	Audience string `json:"audience" form:"audience"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create validates and stores an announcement on behalf of createdBy.
func (r *Repository) Create(createdBy string, in Input) (*entities.Announcement, error) {
	errs := validation.Errors{}
	errs.Required("title", in.Title)
	errs.Required("message", in.Message)

	audience := entities.AudienceAll
	if strings.TrimSpace(in.Audience) != "" {
		parsed, ok := entities.ParseAudience(in.Audience)
		if !ok {
			errs.Add("audience", "audience must be one of All, Student, Faculty, Librarian")
		}
		audience = parsed
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	a := entities.Announcement{
		Title:     strings.TrimSpace(in.Title),
		Message:   strings.TrimSpace(in.Message),
		Audience:  audience,
		CreatedBy: createdBy,
	}
	if err := r.db.Create(&a).Error; err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}
	return &a, nil
}

// List returns all announcements, newest first.
func (r *Repository) List() ([]entities.Announcement, error) {
	var list []entities.Announcement
	err := r.db.Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// Latest returns the newest announcements regardless of audience.
func (r *Repository) Latest(limit int) ([]entities.Announcement, error) {
	if limit <= 0 {
		limit = DefaultLatest
	}
	var list []entities.Announcement
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// ForRole returns the newest announcements addressed to everyone or to role.
// Admins see every audience.
func (r *Repository) ForRole(role entities.UserRole, limit int) ([]entities.Announcement, error) {
	if role == entities.UserRoleAdmin {
		return r.Latest(limit)
	}
	if limit <= 0 {
		limit = DefaultLatest
	}
	audiences := []entities.AudienceType{entities.AudienceAll}
	if a := entities.AudienceForRole(role); a != entities.AudienceAll {
		audiences = append(audiences, a)
	}

	var list []entities.Announcement
	err := r.db.Where("audience IN ?", audiences).
		Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}
