package entities

import (
	"strings"
	"time"
)

type AudienceType string

const (
	AudienceAll       AudienceType = "All"
	AudienceStudent   AudienceType = "Student"
	AudienceFaculty   AudienceType = "Faculty"
	AudienceLibrarian AudienceType = "Librarian"
)

// ParseAudience matches an audience name case-insensitively.
func ParseAudience(s string) (AudienceType, bool) {
	for _, a := range []AudienceType{AudienceAll, AudienceStudent, AudienceFaculty, AudienceLibrarian} {
		if strings.EqualFold(strings.TrimSpace(s), string(a)) {
			return a, true
		}
	}
	return "", false
}

// AudienceForRole maps a user role onto the announcement audience it reads.
func AudienceForRole(role UserRole) AudienceType {
	switch role {
	case UserRoleStudent:
		return AudienceStudent
	case UserRoleFaculty:
		return AudienceFaculty
	case UserRoleLibrarian:
		return AudienceLibrarian
	default:
		return AudienceAll
	}
}

type Announcement struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Title     string       `gorm:"size:200;not null" json:"title"`
	Message   string       `gorm:"type:text;not null" json:"message"`
	Audience  AudienceType `gorm:"index;size:20;not null" json:"audience"`
	CreatedBy string       `gorm:"size:100" json:"created_by"`
	CreatedAt time.Time    `gorm:"index" json:"created_at"`
}

func (Announcement) TableName() string {
	return "announcements"
}
