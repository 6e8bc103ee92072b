package entrypoint

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/audit"
	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/database"
	"github.com/mrlokans/library-manager/internal/database/announcements"
	auditstore "github.com/mrlokans/library-manager/internal/database/audit"
	"github.com/mrlokans/library-manager/internal/database/books"
	loanstore "github.com/mrlokans/library-manager/internal/database/loans"
	"github.com/mrlokans/library-manager/internal/database/reports"
	"github.com/mrlokans/library-manager/internal/database/users"
	"github.com/mrlokans/library-manager/internal/loans"
	"github.com/mrlokans/library-manager/internal/logging"
	"github.com/mrlokans/library-manager/internal/mail"
	"github.com/mrlokans/library-manager/internal/tasks"
)

// App holds the components shared by the server and the CLI commands.
type App struct {
	Config *config.Config
	Logger *logrus.Logger

	DB    *database.Database
	Audit *audit.Service

	Books         *books.Repository
	Loans         *loanstore.Repository
	Users         *users.Repository
	Announcements *announcements.Repository
	Reports       *reports.Repository

	Auth     *auth.Service
	Workflow *loans.Service

	Mailer mail.Mailer
	Sender mail.Sender

	// Tasks is nil until StartTasks is called.
	Tasks *tasks.Client
}

// NewApp opens the database and builds the repositories and services.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.Log)

	db, err := database.NewDatabase(cfg.Database, logging.Component(logger, "database"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Audit:         audit.NewService(auditstore.NewRepository(db.DB), logging.Component(logger, "audit")),
		Books:         books.NewRepository(db.DB),
		Loans:         loanstore.NewRepository(db.DB),
		Users:         users.NewRepository(db.DB),
		Announcements: announcements.NewRepository(db.DB),
		Reports:       reports.NewRepository(db.DB),
		Mailer:        mail.New(cfg.Mail, logging.Component(logger, "mail")),
		Sender:        mail.Sender{AppName: cfg.Global.AppName, BaseURL: cfg.Global.BaseURL},
	}

	a.Auth = auth.NewService(db.DB, cfg.Auth)
	a.Auth.SetAuditor(a.Audit)
	a.Auth.SetLogger(logging.Component(logger, "auth"))

	a.Workflow = loans.NewService(db.DB, cfg.Loans, a.Audit, logging.Component(logger, "loans"))

	return a, nil
}

// StartTasks opens the task queue and registers every queue. Emails queued
// by the auth service go through it from now on. Workers are not started.
func (a *App) StartTasks() (*tasks.Client, error) {
	if a.Tasks != nil {
		return a.Tasks, nil
	}

	client, err := tasks.NewClient(a.Config.Database.Path, tasks.FromConfig(a.Config.Tasks), logging.Component(a.Logger, "tasks"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task queue: %w", err)
	}

	emails := tasks.NewEmailQueue(client)
	client.Register(
		tasks.NewSendEmailQueue(a.Mailer, a.Audit, logging.Component(a.Logger, "send_email")),
		tasks.NewOverdueRemindersQueue(a.OverdueReminder(emails)),
		tasks.NewCleanupAuditEventsQueue(a.Audit, logging.Component(a.Logger, "audit_cleanup")),
	)
	a.Auth.SetNotifier(emails, a.Sender)

	a.Tasks = client
	return client, nil
}

// OverdueReminder builds the overdue scan on top of queue.
func (a *App) OverdueReminder(queue tasks.Enqueuer) *tasks.OverdueReminder {
	return &tasks.OverdueReminder{
		Source:  a.Loans,
		Sender:  a.Sender,
		Queue:   queue,
		Auditor: a.Audit,
		Logger:  logging.Component(a.Logger, "overdue_reminders"),
		Now:     time.Now,
	}
}

// Close flushes the audit log and closes the task queue and database.
func (a *App) Close() {
	a.Audit.Flush()
	if a.Tasks != nil {
		if err := a.Tasks.Close(); err != nil {
			a.Logger.WithError(err).Warn("error closing task client")
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.WithError(err).Warn("error closing database")
	}
}
