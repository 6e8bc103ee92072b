package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entities"
)

// Models lists every table managed by AutoMigrate, in dependency order.
var Models = []any{
	&entities.User{},
	&entities.Book{},
	&entities.BookRecord{},
	&entities.RenewalRequest{},
	&entities.Announcement{},
	&entities.AuditEvent{},
}

type Database struct {
	DB     *gorm.DB
	Driver string
}

// slowQueryThreshold is the duration above which gorm reports a query.
const slowQueryThreshold = 200 * time.Millisecond

// NewDatabase opens the configured database and migrates the schema. gorm's
// warnings, slow queries and errors go to log; nil uses the logrus standard
// logger.
func NewDatabase(cfg config.Database, log *logrus.Entry) (*Database, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == config.DriverMySQL {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get SQL DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db, Driver: driverName(cfg)}
	if err := database.createIndexes(); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	log.WithField("driver", database.Driver).Info("database initialized")

	return database, nil
}

// NewSQLiteDatabase is a shortcut for a SQLite file, mostly used by tests and the CLI.
func NewSQLiteDatabase(path string) (*Database, error) {
	return NewDatabase(config.Database{Driver: config.DriverSQLite, Path: path}, nil)
}

// gormWriter feeds gorm's formatted log lines into logrus.
type gormWriter struct {
	entry *logrus.Entry
}

// Printf only receives warnings, slow queries and errors at logger.Warn.
func (w gormWriter) Printf(format string, args ...any) {
	w.entry.Warnf(format, args...)
}

func newGormLogger(log *logrus.Entry) logger.Interface {
	return logger.New(gormWriter{entry: log.WithField("component", "gorm")}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func driverName(cfg config.Database) string {
	if cfg.Driver == "" {
		return config.DriverSQLite
	}
	return cfg.Driver
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch driverName(cfg) {
	case config.DriverSQLite:
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	case config.DriverMySQL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the mysql driver")
		}
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDSN(path string) string {
	if path == "" {
		path = config.DefaultDatabasePath
	}
	if strings.Contains(path, ":memory:") || strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// createIndexes adds indexes gorm tags cannot express.
func (d *Database) createIndexes() error {
	if d.Driver != config.DriverSQLite {
		return nil
	}
	// A borrower may hold one open request per book.
	return d.DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_book_records_open_request
		ON book_records(user_id, book_id) WHERE status IN ('Pending', 'Requested')`).Error
}

// Ping checks database connectivity.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
