package entities

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin     UserRole = "Admin"
	UserRoleStudent   UserRole = "Student"
	UserRoleFaculty   UserRole = "Faculty"
	UserRoleLibrarian UserRole = "Librarian"
)

// ParseUserRole matches a role name case-insensitively.
func ParseUserRole(s string) (UserRole, bool) {
	for _, r := range []UserRole{UserRoleAdmin, UserRoleStudent, UserRoleFaculty, UserRoleLibrarian} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, true
		}
	}
	return "", false
}

// IsStaff reports whether the role may process loan requests.
func (r UserRole) IsStaff() bool {
	return r == UserRoleAdmin || r == UserRoleLibrarian
}

// CanSelfRegister reports whether the role may be chosen on the registration form.
func (r UserRole) CanSelfRegister() bool {
	return r == UserRoleStudent || r == UserRoleFaculty || r == UserRoleLibrarian
}

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	LoginID          *string    `gorm:"uniqueIndex;size:100" json:"login_id,omitempty"`
	FullName         string     `gorm:"size:200;not null" json:"full_name"`
	Email            string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone            string     `gorm:"size:32" json:"phone"`
	Gender           string     `gorm:"size:16" json:"gender"`
	Department       string     `gorm:"size:100" json:"department"`
	Role             UserRole   `gorm:"index;size:20;not null" json:"role"`
	Semester         string     `gorm:"size:20" json:"semester,omitempty"`
	Year             string     `gorm:"size:20" json:"year,omitempty"`
	EnrollmentNumber string     `gorm:"size:64" json:"enrollment_number,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Address          string     `gorm:"size:500" json:"address,omitempty"`
	IsApproved       bool       `gorm:"index;default:false" json:"is_approved"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	IsDeleted        bool       `gorm:"index;default:false" json:"is_deleted"`
	PasswordHash     string     `gorm:"size:255" json:"-"`
	RegisteredAt     time.Time  `json:"registered_at"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Login returns the login id, or an empty string before approval.
func (u User) Login() string {
	if u.LoginID == nil {
		return ""
	}
	return *u.LoginID
}

// IsActive reports whether the account may sign in.
func (u User) IsActive() bool {
	return u.IsApproved && !u.IsDeleted
}
