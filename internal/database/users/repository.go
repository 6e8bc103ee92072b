// Package users provides database operations for user administration.
//
// Credential checks and approval live in the auth service; this package
// covers the listings and edits used by the admin screens.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	queue, err := repo.PendingApprovals()
package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/entities"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailInUse   = errors.New("email already in use")
)

// PendingByRole groups unapproved registrations for the approval screen.
type PendingByRole struct {
	Students   []entities.User `json:"students"`
	Faculty    []entities.User `json:"faculty"`
	Librarians []entities.User `json:"librarians"`
}

// Details is a user with the titles of books currently out with them.
type Details struct {
	User        entities.User `json:"user"`
	IssuedBooks []string      `json:"issued_books"`
}

// ProfileUpdate holds the fields a user or an admin may change. Nil fields are left as is.
type ProfileUpdate struct {
	FullName         *string
	Email            *string
	Phone            *string
	Gender           *string
	Department       *string
	Semester         *string
	Year             *string
	EnrollmentNumber *string
	Address          *string
	DateOfBirth      *time.Time
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID, including soft-deleted ones.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// PendingApprovals lists registrations awaiting an admin decision, oldest first.
func (r *Repository) PendingApprovals() (*PendingByRole, error) {
	var pending []entities.User
	err := r.db.Where("is_approved = ? AND is_deleted = ?", false, false).
		Order("registered_at ASC").Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}

	grouped := &PendingByRole{
		Students:   []entities.User{},
		Faculty:    []entities.User{},
		Librarians: []entities.User{},
	}
	for _, u := range pending {
		switch u.Role {
		case entities.UserRoleStudent:
			grouped.Students = append(grouped.Students, u)
		case entities.UserRoleFaculty:
			grouped.Faculty = append(grouped.Faculty, u)
		case entities.UserRoleLibrarian:
			grouped.Librarians = append(grouped.Librarians, u)
		}
	}
	return grouped, nil
}

// List returns active users. An empty role or "All" disables the role filter;
// search matches name, email or login id case-insensitively.
func (r *Repository) List(role, search string) ([]entities.User, error) {
	query := r.db.Where("is_deleted = ?", false)

	if role != "" && !strings.EqualFold(role, "all") {
		parsed, ok := entities.ParseUserRole(role)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", role)
		}
		query = query.Where("role = ?", parsed)
	}

	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(COALESCE(login_id, '')) LIKE ?", like, like, like)
	}

	var users []entities.User
	if err := query.Order("full_name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Details loads a user and the books they still hold.
func (r *Repository) Details(id uint) (*Details, error) {
	user, err := r.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	titles := []string{}
	err = r.db.Table("book_records").
		Select("books.title").
		Joins("JOIN books ON books.id = book_records.book_id").
		Where("book_records.user_id = ?", id).
		Where(entities.CopyOutCondition, entities.CopyReturnedStatuses).
		Order("book_records.issued_at DESC").
		Pluck("books.title", &titles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load issued books: %w", err)
	}

	return &Details{User: *user, IssuedBooks: titles}, nil
}

// UpdateProfile applies the non-nil fields of upd.
func (r *Repository) UpdateProfile(id uint, upd ProfileUpdate) (*entities.User, error) {
	user, err := r.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	set("full_name", upd.FullName)
	set("phone", upd.Phone)
	set("gender", upd.Gender)
	set("department", upd.Department)
	set("semester", upd.Semester)
	set("year", upd.Year)
	set("enrollment_number", upd.EnrollmentNumber)
	set("address", upd.Address)
	if upd.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.DateOfBirth != nil {
		updates["date_of_birth"] = *upd.DateOfBirth
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := r.db.Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return r.GetUserByID(id)
}

// SoftDelete flags a user as deleted. The row is kept for loan history.
func (r *Repository) SoftDelete(id uint) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("is_deleted", true)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountByRole counts active users, optionally for one role.
func (r *Repository) CountByRole(role entities.UserRole) (int64, error) {
	query := r.db.Model(&entities.User{}).Where("is_deleted = ?", false)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
