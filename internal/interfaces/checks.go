package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library-manager/internal/audit"
	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/database"
	"github.com/mrlokans/library-manager/internal/database/announcements"
	"github.com/mrlokans/library-manager/internal/database/books"
	"github.com/mrlokans/library-manager/internal/database/loans"
	"github.com/mrlokans/library-manager/internal/database/reports"
	"github.com/mrlokans/library-manager/internal/database/users"
	"github.com/mrlokans/library-manager/internal/http"
	workflow "github.com/mrlokans/library-manager/internal/loans"
	"github.com/mrlokans/library-manager/internal/mail"
	"github.com/mrlokans/library-manager/internal/scheduler"
	"github.com/mrlokans/library-manager/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.BookStore = (*books.Repository)(nil)
var _ http.LoanQueries = (*loans.Repository)(nil)
var _ http.UserStore = (*users.Repository)(nil)
var _ http.AnnouncementStore = (*announcements.Repository)(nil)
var _ http.ReportStore = (*reports.Repository)(nil)

// =============================================================================
// Services
// =============================================================================

var _ http.LoanWorkflow = (*workflow.Service)(nil)
var _ http.AccountService = (*auth.Service)(nil)

// =============================================================================
// Audit Log
// =============================================================================

var _ http.AuditReader = (*audit.Service)(nil)
var _ http.ActivityAuditor = (*audit.Service)(nil)
var _ auth.Auditor = (*audit.Service)(nil)
var _ auth.LoginAuditor = (*audit.Service)(nil)
var _ workflow.Auditor = (*audit.Service)(nil)
var _ tasks.NotificationAuditor = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Mail and Background Tasks
// =============================================================================

var _ mail.Mailer = (*mail.SMTPMailer)(nil)
var _ mail.Mailer = (*mail.LogMailer)(nil)
var _ auth.Notifier = (*tasks.EmailQueue)(nil)
var _ tasks.Enqueuer = (*tasks.EmailQueue)(nil)
var _ tasks.OverdueSource = (*loans.Repository)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)
var _ scheduler.TaskEnqueuer = (*tasks.Client)(nil)
