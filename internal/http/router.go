package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger(logger.WithField("component", "http")))
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies && cfg.HSTSMaxAge > 0 {
		router.Use(auth.StrictTransportSecurityMiddleware(cfg.HSTSMaxAge))
	}

	if cfg.Maintenance != nil {
		router.Use(cfg.Maintenance.InjectContext())
		router.Use(cfg.Maintenance.Handler())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.Tokens))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Resolve the caller once per request; routes decide what they require
	requireAuth := func(c *gin.Context) { c.Next() }
	requireStaff := requireAuth
	requireAdmin := requireAuth
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
		requireAuth = cfg.AuthMiddleware.RequireAuth()
		requireStaff = cfg.AuthMiddleware.RequireRole(entities.UserRoleLibrarian, entities.UserRoleAdmin)
		requireAdmin = cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin)
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	router.GET("/api/csrf", CSRFToken)

	// Login, logout, registration and first-run setup
	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
		router.POST("/api/auth/token", requireAuth, cfg.AuthController.Token)
	}

	api := router.Group("/api")

	// Catalog
	if cfg.Books != nil {
		books := NewBooksController(cfg.Books, cfg.Auditor)
		api.GET("/books", books.ListBooks)
		api.GET("/books/search", books.SearchBooks)
		api.GET("/books/categories", books.Categories)
		api.GET("/books/:id", books.GetBook)
		api.POST("/books", requireStaff, books.CreateBook)
		api.PUT("/books/:id", requireStaff, books.UpdateBook)
		api.DELETE("/books/:id", requireStaff, books.DeleteBook)
	}

	// Loan workflow
	if cfg.LoanWorkflow != nil && cfg.LoanQueries != nil {
		loans := NewLoansController(cfg.LoanWorkflow, cfg.LoanQueries)
		api.GET("/loans/mine", requireAuth, loans.MyLoans)
		api.GET("/loans/open", requireAuth, loans.OpenLoans)
		api.POST("/loans", requireAuth, loans.RequestBook)
		api.POST("/loans/:id/cancel", requireAuth, loans.Cancel)
		api.POST("/loans/:id/return", requireAuth, loans.RequestReturn)
		api.POST("/loans/:id/renew", requireAuth, loans.RequestRenewal)

		api.GET("/loans/requests", requireStaff, loans.Requests)
		api.GET("/loans/renewals", requireStaff, loans.Renewals)
		api.GET("/loans/:id/renewals", requireStaff, loans.RenewalHistory)
		api.POST("/loans/:id/approve", requireStaff, loans.Approve)
		api.POST("/loans/:id/reject", requireStaff, loans.Reject)
	}

	// Own profile
	if cfg.Users != nil && cfg.Accounts != nil {
		profile := NewProfileController(cfg.Users, cfg.Accounts)
		api.GET("/profile", requireAuth, profile.GetProfile)
		api.PUT("/profile", requireAuth, profile.UpdateProfile)
		api.POST("/profile/password", requireAuth, profile.ChangePassword)

		admin := NewAdminUsersController(cfg.Users, cfg.Accounts, cfg.Auditor)
		api.GET("/admin/approvals", requireAdmin, admin.PendingApprovals)
		api.POST("/admin/users/:id/approve", requireAdmin, admin.Approve)
		api.POST("/admin/users/:id/reject", requireAdmin, admin.Reject)
		api.GET("/admin/users", requireAdmin, admin.ListUsers)
		api.GET("/admin/users/:id", requireAdmin, admin.GetUser)
		api.PUT("/admin/users/:id", requireAdmin, admin.UpdateUser)
		api.DELETE("/admin/users/:id", requireAdmin, admin.DeleteUser)
	}

	// Announcements
	if cfg.Announcements != nil {
		announcements := NewAnnouncementsController(cfg.Announcements, cfg.Auditor)
		api.GET("/announcements/latest", announcements.Latest)
		api.GET("/announcements", requireAuth, announcements.List)
		api.POST("/announcements", requireStaff, announcements.Create)
	}

	// Reports
	if cfg.Reports != nil {
		reports := NewReportsController(cfg.Reports)
		api.GET("/reports/dashboard", requireStaff, reports.Dashboard)
		api.GET("/reports/issued", requireStaff, reports.IssuedBooks)
		api.GET("/reports/issued.csv", requireStaff, reports.ExportIssuedBooks)
		api.GET("/reports/overdue", requireStaff, reports.Overdue)
	}

	// Role based landing data
	if cfg.Books != nil && cfg.LoanQueries != nil && cfg.Announcements != nil && cfg.Reports != nil && cfg.Users != nil {
		dashboard := NewDashboardController(cfg.Books, cfg.LoanQueries, cfg.Announcements, cfg.Reports, cfg.Users)
		api.GET("/dashboard", requireAuth, dashboard.Dashboard)
	}

	// Task queue status
	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		api.GET("/tasks/:id", requireStaff, tasksController.GetTaskStatus)
	}

	// Audit log
	if cfg.AuditLog != nil {
		audit := NewAuditController(cfg.AuditLog)
		api.GET("/admin/audit", requireAdmin, audit.GetAuditEvents)
		api.GET("/admin/audit/:entity/:id", requireAdmin, audit.GetEntityHistory)
		api.GET("/loans/:id/history", requireStaff, audit.LoanTimeline)
	}

	return router
}
