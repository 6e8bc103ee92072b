package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

type AuthMode string

const (
	AuthModeLocal AuthMode = "local" // Local user database with sessions and JWT bearer tokens
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		Auth
		Loans
		Mail
		Tasks
		Scheduler
		Audit
		Maintenance
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		AppName                  string
		BaseURL                  string
	}
	Database struct {
		Driver string // "sqlite" or "mysql"
		Path   string // SQLite file
		DSN    string // MySQL DSN
	}
	Log struct {
		Level  string
		Format string // "text" or "json"
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		JWTIssuer       string
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		GeneratedPasswordLength int
	}
	Loans struct {
		IssueDays      int
		RenewalDays    int
		MaxRequestDays int
	}
	Mail struct {
		Host      string
		Port      int
		Username  string
		Password  string
		From      string
		EnableTLS bool
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Scheduler struct {
		Enabled              bool
		OverdueSchedule      string // Cron format: "0 8 * * *" = daily at 08:00
		AuditCleanupSchedule string
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 90)
	}
	Maintenance struct {
		Enabled bool // Blocks write requests while enabled
	}
)

// NewConfig reads configuration with the precedence: environment, then the
// optional INI file named by CONFIG_FILE, then built-in defaults. A .env file
// in the working directory is loaded into the environment first.
func NewConfig() *Config {
	_ = godotenv.Load()

	v := newViper()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := mergeINI(v, path); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
		}
	}
	return fromViper(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("app_name", "Library Manager")
	v.SetDefault("base_url", "http://localhost:8188")

	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Auth defaults
	v.SetDefault("auth_mode", string(AuthModeLocal))
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_jwt_issuer", "library-manager")
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration
	v.SetDefault("auth_generated_password_length", 10)

	v.SetDefault("loan_issue_days", 14)
	v.SetDefault("loan_renewal_days", 7)
	v.SetDefault("loan_max_request_days", 30)

	v.SetDefault("mail_host", "") // Empty logs messages instead of sending
	v.SetDefault("mail_port", 587)
	v.SetDefault("mail_username", "")
	v.SetDefault("mail_password", "")
	v.SetDefault("mail_from", "")
	v.SetDefault("mail_enable_tls", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("overdue_scan_schedule", DefaultOverdueSchedule)
	v.SetDefault("audit_cleanup_schedule", DefaultAuditCleanupSchedule)
	v.SetDefault("audit_retention_days", 90)

	v.SetDefault("maintenance_mode", false)
	return v
}

// mergeINI loads an INI file below the environment in viper's precedence.
// Keys are flattened as <section>_<key>, so [mail] host maps to MAIL_HOST.
func mergeINI(v *viper.Viper, path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load INI file %s: %w", path, err)
	}

	values := make(map[string]any)
	for _, section := range file.Sections() {
		prefix := ""
		if name := section.Name(); name != ini.DefaultSection {
			prefix = strings.ToLower(name) + "_"
		}
		for _, key := range section.Keys() {
			values[prefix+strings.ToLower(key.Name())] = key.String()
		}
	}
	return v.MergeConfigMap(values)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			AppName:                  v.GetString("APP_NAME"),
			BaseURL:                  v.GetString("BASE_URL"),
		},
		Database: Database{
			Driver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: Auth{
			Mode:                    AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:           v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:         v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:             v.GetDuration("AUTH_TOKEN_EXPIRY"),
			JWTIssuer:               v.GetString("AUTH_JWT_ISSUER"),
			BcryptCost:              v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:           v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts:        v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:         v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:         v.GetDuration("AUTH_LOCKOUT_DURATION"),
			GeneratedPasswordLength: v.GetInt("AUTH_GENERATED_PASSWORD_LENGTH"),
		},
		Loans: Loans{
			IssueDays:      v.GetInt("LOAN_ISSUE_DAYS"),
			RenewalDays:    v.GetInt("LOAN_RENEWAL_DAYS"),
			MaxRequestDays: v.GetInt("LOAN_MAX_REQUEST_DAYS"),
		},
		Mail: Mail{
			Host:      v.GetString("MAIL_HOST"),
			Port:      v.GetInt("MAIL_PORT"),
			Username:  v.GetString("MAIL_USERNAME"),
			Password:  v.GetString("MAIL_PASSWORD"),
			From:      v.GetString("MAIL_FROM"),
			EnableTLS: v.GetBool("MAIL_ENABLE_TLS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Scheduler: Scheduler{
			Enabled:              v.GetBool("SCHEDULER_ENABLED"),
			OverdueSchedule:      v.GetString("OVERDUE_SCAN_SCHEDULE"),
			AuditCleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Maintenance: Maintenance{
			Enabled: v.GetBool("MAINTENANCE_MODE"),
		},
	}
}
