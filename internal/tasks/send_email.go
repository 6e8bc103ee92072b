package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library-manager/internal/mail"
)

// ErrQueueNotConfigured is returned when enqueueing without a task client.
var ErrQueueNotConfigured = errors.New("task queue not configured")

// NotificationAuditor records delivery outcomes.
type NotificationAuditor interface {
	LogNotification(action, description string, sent int, err error)
}

// SendEmailTask delivers one email. Some bodies carry credentials, so task
// data is never retained once the task finishes.
type SendEmailTask struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Config returns the queue configuration for email delivery tasks.
func (t SendEmailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "send_email",
		MaxAttempts: 5,
		Backoff:     1 * time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
		},
	}
}

func (t SendEmailTask) message() mail.Message {
	return mail.Message{To: t.To, Subject: t.Subject, Body: t.Body}
}

// SendEmailProcessor creates a processor function for SendEmailTask.
func SendEmailProcessor(mailer mail.Mailer, auditor NotificationAuditor, logger *logrus.Entry) backlite.QueueProcessor[SendEmailTask] {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return func(ctx context.Context, task SendEmailTask) error {
		if mailer == nil {
			return fmt.Errorf("mailer not configured")
		}

		err := mailer.Send(ctx, task.message())
		if auditor != nil {
			auditor.LogNotification("email_sent", task.Subject, sentCount(err), err)
		}
		if err != nil {
			logger.WithError(err).WithField("subject", task.Subject).Warn("email delivery failed")
			return fmt.Errorf("send email: %w", err)
		}

		logger.WithField("subject", task.Subject).Debug("email delivered")
		return nil
	}
}

func sentCount(err error) int {
	if err != nil {
		return 0
	}
	return 1
}

// NewSendEmailQueue creates a backlite queue for email delivery tasks.
func NewSendEmailQueue(mailer mail.Mailer, auditor NotificationAuditor, logger *logrus.Entry) backlite.Queue {
	return backlite.NewQueue(SendEmailProcessor(mailer, auditor, logger))
}

// EmailQueue hands messages to the send_email queue.
type EmailQueue struct {
	client *Client
}

// NewEmailQueue creates an EmailQueue backed by client.
func NewEmailQueue(client *Client) *EmailQueue {
	return &EmailQueue{client: client}
}

// Enqueue validates msg and stores it as a task, returning the task id.
func (q *EmailQueue) Enqueue(ctx context.Context, msg mail.Message) (string, error) {
	if q == nil || q.client == nil {
		return "", ErrQueueNotConfigured
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id, err := q.client.Enqueue(ctx, SendEmailTask{To: msg.To, Subject: msg.Subject, Body: msg.Body})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue email: %w", err)
	}
	return id, nil
}
