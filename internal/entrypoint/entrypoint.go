package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/config"
	http_controllers "github.com/mrlokans/library-manager/internal/http"
	"github.com/mrlokans/library-manager/internal/logging"
	"github.com/mrlokans/library-manager/internal/maintenance"
	"github.com/mrlokans/library-manager/internal/scheduler"
	"github.com/mrlokans/library-manager/internal/tasks"
)

// hstsMaxAge is one year, sent only when cookies are marked secure.
const hstsMaxAge = 365 * 24 * 60 * 60

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(handler http.Handler, cfg *config.Config, logger *logrus.Entry, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// kill (no param) default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.WithField("timeout", timeout).Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before background work is stopped
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if onShutdown != nil {
		onShutdown(ctx)
	}

	logger.Info("server exited")
	return nil
}

// Run wires every component and serves HTTP until the process is signalled.
func Run(cfg *config.Config, version string) error {
	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	logger := logging.Component(app.Logger, "entrypoint")
	logger.WithFields(logrus.Fields{
		"version": version,
		"driver":  app.DB.Driver,
	}).Info("starting library manager")

	// Task queue and scheduled jobs
	var (
		taskClient  *tasks.Client
		jobs        *scheduler.Scheduler
		taskCancel  context.CancelFunc
		taskContext context.Context
	)
	if cfg.Tasks.Enabled {
		taskClient, err = app.StartTasks()
		if err != nil {
			return err
		}
		taskContext, taskCancel = context.WithCancel(context.Background())
		defer taskCancel()
		go taskClient.Start(taskContext)

		if cfg.Scheduler.Enabled {
			jobs = scheduler.New(taskClient, logging.Component(app.Logger, "scheduler"))
			if err := addJobs(jobs, cfg); err != nil {
				return err
			}
			jobs.Start(taskContext)
		}
	} else {
		logger.Warn("task queue disabled, registration and approval emails cannot be sent")
	}

	// Sessions, bearer tokens and CSRF
	secret, err := sessionSecret(cfg.Auth, logger)
	if err != nil {
		return err
	}

	var sessionManager *auth.SessionManager
	if app.DB.Driver == config.DriverMySQL {
		sessionManager = auth.NewMemorySessionManager(cfg.Auth)
	} else {
		sqlDB, err := app.DB.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
		}
		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to initialize session manager: %w", err)
		}
	}

	tokens := auth.NewTokenIssuer(secret, cfg.Auth.JWTIssuer, cfg.Auth.TokenExpiry)
	authMiddleware := auth.NewMiddleware(app.Auth, sessionManager, tokens)

	authController := auth.NewAuthController(app.Auth, sessionManager, tokens, cfg.Auth)
	authController.SetAuditor(app.Audit)
	authController.SetLogger(logging.Component(app.Logger, "auth"))

	if ok, _ := app.Auth.HasUsers(); !ok {
		logger.Info("no users found, visit /setup or run create-admin to create an administrator")
	}

	mode := maintenance.NewMiddleware(cfg.Maintenance.Enabled)
	if mode.IsEnabled() {
		logger.Warn("maintenance mode enabled, write requests are refused")
	}

	routerCfg := http_controllers.RouterConfig{
		Version:        version,
		Logger:         logging.Component(app.Logger, "http"),
		Database:       app.DB,
		Books:          app.Books,
		LoanWorkflow:   app.Workflow,
		LoanQueries:    app.Loans,
		Users:          app.Users,
		Accounts:       app.Auth,
		Announcements:  app.Announcements,
		Reports:        app.Reports,
		AuditLog:       app.Audit,
		Auditor:        app.Audit,
		AuthController: authController,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		Tokens:         tokens,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		HSTSMaxAge:     hstsMaxAge,
		Maintenance:    mode,
	}
	// A nil *tasks.Client must not become a non-nil interface
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if jobs != nil {
			jobs.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCancel()
		}
		authController.Stop()
	}

	return Serve(router, cfg, logger, onShutdown)
}

func addJobs(s *scheduler.Scheduler, cfg *config.Config) error {
	jobs := []scheduler.Job{
		{Name: "overdue_reminders", Schedule: cfg.Scheduler.OverdueSchedule, Task: tasks.OverdueRemindersTask{}},
		{Name: "audit_cleanup", Schedule: cfg.Scheduler.AuditCleanupSchedule, Task: tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}},
	}
	for _, job := range jobs {
		if err := s.Add(job); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
	}
	return nil
}

// sessionSecret decodes the configured secret, or generates one that lasts
// until the process exits.
func sessionSecret(cfg config.Auth, logger *logrus.Entry) ([]byte, error) {
	if cfg.SessionSecret != "" {
		secret, err := hex.DecodeString(cfg.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			secret = []byte(cfg.SessionSecret)
		}
		return secret, nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	secret, err := hex.DecodeString(generated)
	if err != nil {
		return nil, err
	}
	logger.Warn("generated session secret, set AUTH_SESSION_SECRET to keep sessions across restarts")
	return secret, nil
}
