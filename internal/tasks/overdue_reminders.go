package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/entities"
	"github.com/mrlokans/library-manager/internal/mail"
)

// OverdueSource finds late loans that have not been reminded yet.
type OverdueSource interface {
	ListOverdueUnnotified(now time.Time) ([]entities.BookRecord, error)
	MarkNotified(ids []uint) (int64, error)
}

// Enqueuer queues an email and returns its task id.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg mail.Message) (string, error)
}

// OverdueRemindersTask scans for overdue loans and queues one reminder each.
type OverdueRemindersTask struct{}

// Config returns the queue configuration for overdue scans.
func (t OverdueRemindersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_reminders",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueReminder queues reminder emails for overdue Issued records.
type OverdueReminder struct {
	Source  OverdueSource
	Sender  mail.Sender
	Queue   Enqueuer
	Auditor NotificationAuditor
	Logger  *logrus.Entry
	Now     func() time.Time
}

// Run queues a reminder for every overdue record not yet notified and marks
// those records. Records whose email could not be queued stay unmarked so
// the next scan retries them.
func (r *OverdueReminder) Run(ctx context.Context) (int, error) {
	if r.Source == nil || r.Queue == nil {
		return 0, fmt.Errorf("overdue reminders not configured")
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	logger := r.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	scanAt := now()
	records, err := r.Source.ListOverdueUnnotified(scanAt)
	if err != nil {
		return 0, fmt.Errorf("list overdue records: %w", err)
	}

	var notified []uint
	var failures int
	for _, rec := range records {
		if rec.User.Email == "" || !rec.IsOverdue(scanAt) {
			continue
		}
		msg, err := r.Sender.OverdueReminder(rec.User.Email, rec.User.FullName, rec.Book.Title, *rec.DueAt)
		if err == nil {
			_, err = r.Queue.Enqueue(ctx, msg)
		}
		if err != nil {
			failures++
			logger.WithError(err).WithField("record_id", rec.ID).Warn("overdue reminder not queued")
			continue
		}
		notified = append(notified, rec.ID)
	}

	if len(notified) > 0 {
		if _, err := r.Source.MarkNotified(notified); err != nil {
			return 0, fmt.Errorf("mark records notified: %w", err)
		}
	}

	var runErr error
	if failures > 0 {
		runErr = fmt.Errorf("%d overdue reminders could not be queued", failures)
	}
	if r.Auditor != nil {
		r.Auditor.LogNotification("overdue_scan",
			fmt.Sprintf("%d overdue records, %d reminders queued", len(records), len(notified)),
			len(notified), runErr)
	}
	logger.WithFields(logrus.Fields{
		"overdue": len(records),
		"queued":  len(notified),
	}).Info("overdue scan finished")

	return len(notified), runErr
}

// OverdueRemindersProcessor creates a processor function for OverdueRemindersTask.
func OverdueRemindersProcessor(reminder *OverdueReminder) backlite.QueueProcessor[OverdueRemindersTask] {
	return func(ctx context.Context, _ OverdueRemindersTask) error {
		if reminder == nil {
			return fmt.Errorf("overdue reminders not configured")
		}
		_, err := reminder.Run(ctx)
		return err
	}
}

// NewOverdueRemindersQueue creates a backlite queue for overdue scans.
func NewOverdueRemindersQueue(reminder *OverdueReminder) backlite.Queue {
	return backlite.NewQueue(OverdueRemindersProcessor(reminder))
}
