// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or MySQL), migrations
//	├── users/           # Registration records, approval queue, user admin
//	├── books/           # Catalog CRUD, browsing and search
//	├── loans/           # Book record and renewal log queries
//	├── announcements/   # Notice board
//	├── reports/         # Dashboard counters and issued-book report
//	└── audit/           # Audit trail
//
// Status transitions of book records are not written here; they belong to
// the loans service, which guards every update by the record's current status.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database, logger)
//
//	booksRepo := books.NewRepository(db.DB)
//	usersRepo := users.NewRepository(db.DB)
//
//	book, err := booksRepo.GetByID(123)
//	pending, err := usersRepo.PendingApprovals()
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check in internal/interfaces
package database
