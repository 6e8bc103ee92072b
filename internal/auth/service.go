package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/mail"
	"github.com/mrlokans/library-manager/internal/validation"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrAuthRequired        = errors.New("authentication required")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrNotApproved         = errors.New("account is awaiting approval")
	ErrAlreadyApproved     = errors.New("account is already approved")
	ErrAccountLocked       = errors.New("account is locked due to too many failed login attempts")
	ErrSetupComplete       = errors.New("an administrator already exists")
	ErrNotificationFailed  = errors.New("failed to queue notification email")
	ErrNotifierUnavailable = errors.New("no mail queue configured")
)

// Notifier queues an email for delivery and returns the task id.
type Notifier interface {
	Enqueue(ctx context.Context, msg mail.Message) (string, error)
}

// Auditor records account events.
type Auditor interface {
	LogUser(actorID uint, action string, userID uint, description string, err error)
}

// RegisterInput is the self-registration form.
type RegisterInput struct {
	FullName         string     `json:"full_name" form:"full_name"`
	Email            string     `json:"email" form:"email"`
	Phone            string     `json:"phone" form:"phone"`
	Gender           string     `json:"gender" form:"gender"`
	Department       string     `json:"department" form:"department"`
	Role             string     `json:"role" form:"role"`
	Semester         string     `json:"semester" form:"semester"`
	Year             string     `json:"year" form:"year"`
	EnrollmentNumber string     `json:"enrollment_number" form:"enrollment_number"`
	DateOfBirth      *time.Time `json:"date_of_birth" form:"date_of_birth" time_format:"2006-01-02"`
	Address          string     `json:"address" form:"address"`
	UserIdentifier   string     `json:"user_identifier" form:"user_identifier"`
}

// RegisterResult reports the new account and the confirmation email outcome.
type RegisterResult struct {
	User            *entities.User
	TaskID          string
	NotificationErr error
}

// ApprovalResult is an approved account and the credentials email task.
type ApprovalResult struct {
	User   *entities.User
	TaskID string
}

// Service handles authentication and user management.
type Service struct {
	db       *gorm.DB
	config   config.Auth
	notifier Notifier
	sender   mail.Sender
	auditor  Auditor
	logger   *logrus.Entry
	now      func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logrus.NewEntry(logrus.StandardLogger()).WithField("component", "auth"),
		now:    time.Now,
	}
}

// SetNotifier wires the mail queue used for registration and credential emails.
func (s *Service) SetNotifier(n Notifier, sender mail.Sender) {
	s.notifier = n
	s.sender = sender
}

func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

func (s *Service) SetLogger(logger *logrus.Entry) {
	s.logger = logger.WithField("component", "auth")
}

// Register creates an unapproved account and queues the confirmation email.
// A mail failure does not undo the registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	errs := validation.Errors{}
	errs.Required("full_name", in.FullName)
	errs.Email("email", in.Email)
	errs.Required("phone", in.Phone)
	errs.Required("gender", in.Gender)
	errs.Required("department", in.Department)
	errs.Required("user_identifier", in.UserIdentifier)
	role, ok := entities.ParseUserRole(in.Role)
	if !ok || !role.CanSelfRegister() {
		errs.Add("role", "role must be Student, Faculty or Librarian")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	loginID := strings.TrimSpace(in.UserIdentifier)

	user := &entities.User{
		LoginID:          &loginID,
		FullName:         strings.TrimSpace(in.FullName),
		Email:            email,
		Phone:            strings.TrimSpace(in.Phone),
		Gender:           strings.TrimSpace(in.Gender),
		Department:       strings.TrimSpace(in.Department),
		Role:             role,
		Semester:         strings.TrimSpace(in.Semester),
		Year:             strings.TrimSpace(in.Year),
		EnrollmentNumber: strings.TrimSpace(in.EnrollmentNumber),
		DateOfBirth:      in.DateOfBirth,
		Address:          strings.TrimSpace(in.Address),
		RegisteredAt:     s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureUnique(tx, email, loginID); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &RegisterResult{User: user}
	s.audit(user.ID, "user_register", user.ID, "Registered "+user.Email, nil)

	msg, err := s.sender.RegistrationReceived(user.Email, user.FullName)
	if err == nil {
		result.TaskID, err = s.enqueue(ctx, msg)
	}
	if err != nil {
		result.NotificationErr = err
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("registration email not queued")
	}
	return result, nil
}

func (s *Service) ensureUnique(tx *gorm.DB, email, loginID string) error {
	var count int64
	err := tx.Model(&entities.User{}).
		Where("LOWER(email) = ? OR LOWER(login_id) = ?", strings.ToLower(email), strings.ToLower(loginID)).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return ErrUserExists
	}
	return nil
}

// ApproveUser activates a registration, generates its password and queues the
// credentials email. If the email cannot be queued the approval is rolled back.
func (s *Service) ApproveUser(ctx context.Context, admin Identity, userID uint) (*ApprovalResult, error) {
	if !admin.HasRole(entities.UserRoleAdmin) {
		return nil, ErrForbidden
	}

	result := &ApprovalResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.IsDeleted {
			return ErrUserNotFound
		}
		if user.IsApproved {
			return ErrAlreadyApproved
		}

		if user.Login() == "" {
			login := user.Email
			if user.Role == entities.UserRoleStudent && user.EnrollmentNumber != "" {
				login = user.EnrollmentNumber
			}
			user.LoginID = &login
		}

		password, err := GeneratePassword(s.config.GeneratedPasswordLength)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
		hash, err := HashPassword(password, s.config.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		now := s.now()
		res := tx.Model(&entities.User{}).
			Where("id = ? AND is_approved = ?", user.ID, false).
			Updates(map[string]any{
				"login_id":      user.LoginID,
				"password_hash": hash,
				"is_approved":   true,
				"approved_at":   now,
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to approve user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyApproved
		}
		user.IsApproved = true
		user.ApprovedAt = &now
		user.PasswordHash = hash

		msg, err := s.sender.AccountApproved(user.Email, user.FullName, user.Login(), password)
		if err != nil {
			return err
		}
		taskID, err := s.enqueue(ctx, msg)
		if err != nil {
			return err
		}

		result.User = &user
		result.TaskID = taskID
		return nil
	})

	if err != nil {
		s.audit(admin.UserID, "user_approve", userID, fmt.Sprintf("approve user %d", userID), err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  result.User.ID,
		"login_id": result.User.Login(),
		"task_id":  result.TaskID,
	}).Info("user approved")
	s.audit(admin.UserID, "user_approve", userID, "Approved "+result.User.Email, nil)
	return result, nil
}

// RejectRegistration soft deletes a registration that was never approved.
func (s *Service) RejectRegistration(ctx context.Context, admin Identity, userID uint) error {
	if !admin.HasRole(entities.UserRoleAdmin) {
		return ErrForbidden
	}

	user, err := s.GetUserByID(userID)
	if err == nil && user.IsDeleted {
		err = ErrUserNotFound
	}
	if err == nil && user.IsApproved {
		err = ErrAlreadyApproved
	}
	if err == nil {
		res := s.db.WithContext(ctx).Model(&entities.User{}).
			Where("id = ? AND is_approved = ? AND is_deleted = ?", userID, false, false).
			Update("is_deleted", true)
		switch {
		case res.Error != nil:
			err = fmt.Errorf("failed to reject registration: %w", res.Error)
		case res.RowsAffected == 0:
			err = ErrAlreadyApproved
		}
	}

	s.audit(admin.UserID, "user_reject", userID, fmt.Sprintf("reject registration %d", userID), err)
	return err
}

// Authenticate validates credentials and returns the user. identifier is a
// login id or an email address; an empty role accepts any role.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(role entities.UserRole, identifier, password string) (*entities.User, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" {
		return nil, ErrUserNotFound
	}

	query := s.db.Where("LOWER(login_id) = ? OR LOWER(email) = ?", identifier, identifier)
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var user entities.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.IsDeleted {
		return nil, ErrUserNotFound
	}

	// Check if account is locked
	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}
	if !user.IsApproved {
		return nil, ErrNotApproved
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		return nil, ErrInvalidPassword
	}

	s.db.Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return &user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		lockedUntil := s.now().Add(lockoutDuration)
		updates["locked_until"] = lockedUntil
	}

	s.db.Model(user).Updates(updates)
}

// CreateAdmin creates the first administrator. It fails once any admin exists.
func (s *Service) CreateAdmin(loginID, fullName, email, password string) (*entities.User, error) {
	errs := validation.Errors{}
	errs.Required("login_id", loginID)
	errs.Required("full_name", fullName)
	errs.Email("email", email)
	errs.Required("password", password)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	loginID = strings.TrimSpace(loginID)
	email = strings.ToLower(strings.TrimSpace(email))
	now := s.now()
	user := &entities.User{
		LoginID:      &loginID,
		FullName:     strings.TrimSpace(fullName),
		Email:        email,
		Role:         entities.UserRoleAdmin,
		IsApproved:   true,
		ApprovedAt:   &now,
		PasswordHash: hash,
		RegisteredAt: now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var admins int64
		if err := tx.Model(&entities.User{}).Where("role = ? AND is_deleted = ?", entities.UserRoleAdmin, false).Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			return ErrSetupComplete
		}
		if err := s.ensureUnique(tx, email, loginID); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	var count int64
	err := s.db.Model(&entities.User{}).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ActiveUser returns the user behind id if the account may still sign in.
func (s *Service) ActiveUser(id uint) (*entities.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ChangePassword updates a user's password.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	// Verify old password
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	return s.SetPassword(userID, newPassword)
}

// SetPassword replaces a password without checking the old one.
func (s *Service) SetPassword(userID uint, newPassword string) error {
	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	res := s.db.Model(&entities.User{}).Where("id = ?", userID).Update("password_hash", newHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResetPassword generates a new password for an active account and mails it.
// The new hash is only stored if the email could be queued.
func (s *Service) ResetPassword(ctx context.Context, identifier string) (string, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return "", validation.Single("identifier", "identifier is required")
	}

	var taskID string
	var userID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		err := tx.Where("LOWER(login_id) = ? OR LOWER(email) = ?", identifier, identifier).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if !user.IsActive() {
			return ErrUserNotFound
		}
		userID = user.ID

		password, err := GeneratePassword(s.config.GeneratedPasswordLength)
		if err != nil {
			return err
		}
		hash, err := HashPassword(password, s.config.BcryptCost)
		if err != nil {
			return err
		}
		if err := tx.Model(&user).Updates(map[string]any{
			"password_hash":      hash,
			"failed_login_count": 0,
			"locked_until":       nil,
		}).Error; err != nil {
			return err
		}

		msg, err := s.sender.PasswordReset(user.Email, user.FullName, user.Login(), password)
		if err != nil {
			return err
		}
		taskID, err = s.enqueue(ctx, msg)
		return err
	})

	if userID != 0 {
		s.audit(userID, "password_reset", userID, "Password reset requested", err)
	}
	return taskID, err
}

func (s *Service) enqueue(ctx context.Context, msg mail.Message) (string, error) {
	if s.notifier == nil {
		return "", ErrNotifierUnavailable
	}
	id, err := s.notifier.Enqueue(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return id, nil
}

func (s *Service) audit(actorID uint, action string, userID uint, description string, err error) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogUser(actorID, action, userID, description, err)
}
