package entities

import "time"

type AuditEventType string

const (
	AuditEventAuth         AuditEventType = "auth"
	AuditEventUser         AuditEventType = "user"
	AuditEventLoan         AuditEventType = "loan"
	AuditEventCatalog      AuditEventType = "catalog"
	AuditEventAnnouncement AuditEventType = "announcement"
	AuditEventNotification AuditEventType = "notification"
)

// Entity types audit events are recorded against.
const (
	AuditEntityBook         = "book"
	AuditEntityBookRecord   = "book_record"
	AuditEntityUser         = "user"
	AuditEntityAnnouncement = "announcement"
)

// IsAuditEntity reports whether s names an entity type audit events use.
func IsAuditEntity(s string) bool {
	switch s {
	case AuditEntityBook, AuditEntityBookRecord, AuditEntityUser, AuditEntityAnnouncement:
		return true
	}
	return false
}

// ParseAuditEventType accepts one of the known event types.
func ParseAuditEventType(s string) (AuditEventType, bool) {
	switch t := AuditEventType(s); t {
	case AuditEventAuth, AuditEventUser, AuditEventLoan, AuditEventCatalog,
		AuditEventAnnouncement, AuditEventNotification:
		return t, true
	}
	return "", false
}

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g., "loan_approve", "user_approve"
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	EntityType  string         `gorm:"size:50" json:"entity_type"`  // "book", "book_record", "user"
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

// AuditFilter narrows the admin audit listing. Zero fields match everything.
type AuditFilter struct {
	ActorID    uint
	EventType  AuditEventType
	EntityType string
	Status     AuditStatus
	Since      time.Time
}
