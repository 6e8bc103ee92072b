package http

import (
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/maintenance"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Application info
	Version string
	Logger  *logrus.Entry

	// Health checks
	Database Pinger

	// Catalog and loans
	Books        BookStore
	LoanWorkflow LoanWorkflow
	LoanQueries  LoanQueries

	// Users
	Users    UserStore
	Accounts AccountService

	// Announcements and reports
	Announcements AnnouncementStore
	Reports       ReportStore

	// Audit log (optional)
	AuditLog AuditReader
	Auditor  ActivityAuditor

	// Task queue status (optional)
	Tasks TaskStatusReader

	// Authentication
	AuthController *auth.AuthController
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	Tokens         *auth.TokenIssuer
	CSRFSecret     []byte
	SecureCookies  bool
	HSTSMaxAge     int

	// Maintenance mode (optional)
	Maintenance *maintenance.Middleware
}
