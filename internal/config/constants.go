package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library-manager.db"

	// DefaultOverdueSchedule runs the overdue reminder scan every morning.
	DefaultOverdueSchedule = "0 8 * * *"

	// DefaultAuditCleanupSchedule prunes old audit events nightly.
	DefaultAuditCleanupSchedule = "30 3 * * *"
)

// Database drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)
