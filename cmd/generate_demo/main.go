// Command generate_demo creates a demo library database with a small catalog,
// one account per role, a few loans and announcements.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/database"
	"github.com/mrlokans/library-manager/internal/database/announcements"
	"github.com/mrlokans/library-manager/internal/database/books"
	"github.com/mrlokans/library-manager/internal/entities"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"

	// demoPassword is shared by every demo account.
	demoPassword = "demo-password"

	demoBcryptCost = 10
)

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log := logrus.WithField("db", *dbPath)
	log.Info("generating demo database")

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Fatal("failed to remove existing demo database")
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.WithError(err).Fatal("failed to create demo directory")
	}

	db, err := database.NewDatabase(config.Database{Driver: config.DriverSQLite, Path: *dbPath}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create database")
	}
	defer db.Close()

	accounts := createUsers(db)

	catalog := books.NewRepository(db.DB)
	var created []*entities.Book
	for _, in := range demoBooks() {
		book, err := catalog.CreateBook(in)
		if err != nil {
			log.WithError(err).WithField("title", in.Title).Warn("failed to save book")
			continue
		}
		created = append(created, book)
		log.WithFields(logrus.Fields{"title": book.Title, "copies": book.Quantity}).Info("saved book")
	}

	createLoans(db, accounts, created)
	createAnnouncements(db)

	log.WithField("password", demoPassword).Info("demo database generated, every account uses the same password")
}

func createUsers(db *database.Database) map[entities.UserRole]*entities.User {
	hash, err := auth.HashPassword(demoPassword, demoBcryptCost)
	if err != nil {
		logrus.WithError(err).Fatal("failed to hash demo password")
	}

	now := time.Now()
	people := []struct {
		login string
		name  string
		role  entities.UserRole
		dept  string
	}{
		{"admin", "Demo Administrator", entities.UserRoleAdmin, "Library"},
		{"L001", "Lena Librarian", entities.UserRoleLibrarian, "Library"},
		{"F001", "Farid Faculty", entities.UserRoleFaculty, "Computer Science"},
		{"S001", "Sara Student", entities.UserRoleStudent, "Computer Science"},
	}

	accounts := make(map[entities.UserRole]*entities.User)
	for _, p := range people {
		login := p.login
		user := &entities.User{
			LoginID:      &login,
			FullName:     p.name,
			Email:        login + "@demo.library",
			Department:   p.dept,
			Role:         p.role,
			IsApproved:   true,
			ApprovedAt:   &now,
			PasswordHash: hash,
			RegisteredAt: now,
		}
		if err := db.DB.Create(user).Error; err != nil {
			logrus.WithError(err).WithField("login_id", login).Warn("failed to create user")
			continue
		}
		accounts[p.role] = user
	}

	// One registration waiting for approval
	pending := &entities.User{
		FullName:         "Pat Pending",
		Email:            "pending@demo.library",
		Department:       "Physics",
		Role:             entities.UserRoleStudent,
		EnrollmentNumber: "EN-2024-017",
		RegisteredAt:     now,
	}
	if err := db.DB.Create(pending).Error; err != nil {
		logrus.WithError(err).Warn("failed to create pending registration")
	}
	return accounts
}

func demoBooks() []books.Input {
	return []books.Input{
		{Title: "Structure and Interpretation of Computer Programs", Author: "Abelson, Sussman", Department: "Computer Science", ISBN: "9780262510875", BookCode: "CS-001", Price: 55, Quantity: 3},
		{Title: "The C Programming Language", Author: "Kernighan, Ritchie", Department: "Computer Science", ISBN: "9780131103627", BookCode: "CS-002", Price: 48, Quantity: 2},
		{Title: "Introduction to Algorithms", Author: "Cormen, Leiserson, Rivest, Stein", Department: "Computer Science", ISBN: "9780262046305", BookCode: "CS-003", Price: 95, Quantity: 4},
		{Title: "Linear Algebra and Its Applications", Author: "Gilbert Strang", Department: "Mathematics", ISBN: "9780030105678", BookCode: "MA-001", Price: 70, Quantity: 2},
		{Title: "Calculus", Author: "Michael Spivak", Department: "Mathematics", ISBN: "9780914098911", BookCode: "MA-002", Price: 80, Quantity: 1},
		{Title: "The Feynman Lectures on Physics", Author: "Richard Feynman", Department: "Physics", ISBN: "9780465023820", BookCode: "PH-001", Price: 120, Quantity: 2},
		{Title: "Optics", Author: "Eugene Hecht", Department: "Physics", ISBN: "9780133977226", BookCode: "PH-002", Price: 65, Quantity: 1},
		{Title: "Principles of Economics", Author: "N. Gregory Mankiw", Department: "Economics", ISBN: "9780357038314", BookCode: "EC-001", Price: 60, Quantity: 3},
	}
}

// createLoans leaves one request pending, one loan running and one overdue
// so every staff queue has something in it.
func createLoans(db *database.Database, accounts map[entities.UserRole]*entities.User, catalog []*entities.Book) {
	student, faculty := accounts[entities.UserRoleStudent], accounts[entities.UserRoleFaculty]
	if student == nil || faculty == nil || len(catalog) < 3 {
		return
	}

	now := time.Now()
	day := 24 * time.Hour
	issued := now.Add(-3 * day)
	due := issued.Add(14 * day)
	lateIssued := now.Add(-20 * day)
	lateDue := lateIssued.Add(14 * day)

	records := []entities.BookRecord{
		{BookID: catalog[0].ID, UserID: student.ID, LoginID: student.Login(), RequestedAt: now, RequestedDays: 14, Status: entities.LoanStatusPending},
		{BookID: catalog[1].ID, UserID: student.ID, LoginID: student.Login(), RequestedAt: issued, RequestedDays: 14, IssuedAt: &issued, DueAt: &due, Status: entities.LoanStatusIssued},
		{BookID: catalog[2].ID, UserID: faculty.ID, LoginID: faculty.Login(), RequestedAt: lateIssued, RequestedDays: 14, IssuedAt: &lateIssued, DueAt: &lateDue, Status: entities.LoanStatusIssued},
	}

	for i := range records {
		rec := &records[i]
		if err := db.DB.Create(rec).Error; err != nil {
			logrus.WithError(err).Warn("failed to create loan")
			continue
		}
		if rec.HoldsCopy() {
			db.DB.Model(&entities.Book{}).Where("id = ? AND quantity > 0", rec.BookID).
				UpdateColumns(map[string]any{
					"is_available": gorm.Expr("quantity > 1"),
					"quantity":     gorm.Expr("quantity - 1"),
				})
		}
	}
}

func createAnnouncements(db *database.Database) {
	repo := announcements.NewRepository(db.DB)
	for _, in := range []announcements.Input{
		{Title: "Welcome to the demo library", Message: "Browse the catalog and request a book to try the loan workflow.", Audience: "All"},
		{Title: "Exam season opening hours", Message: "The reading room stays open until 22:00 during exams.", Audience: "Student"},
		{Title: "New journal subscriptions", Message: "Faculty can now borrow the latest issues for up to seven days.", Audience: "Faculty"},
	} {
		if _, err := repo.Create("admin", in); err != nil {
			logrus.WithError(err).WithField("title", in.Title).Warn("failed to create announcement")
		}
	}
}
