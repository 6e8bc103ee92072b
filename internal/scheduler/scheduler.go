// Package scheduler enqueues recurring background tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// TaskEnqueuer adds a task to the queue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// Job enqueues Task every time Schedule fires.
type Job struct {
	Name     string
	Schedule string
	Task     backlite.Task
}

// Scheduler runs cron jobs that hand work to the task queue, so scheduled
// runs get the queue's retries and status tracking.
type Scheduler struct {
	queue  TaskEnqueuer
	logger *logrus.Entry

	cron    *cron.Cron
	jobs    map[string]Job
	entries map[string]cron.EntryID

	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// New creates a scheduler that enqueues onto queue.
func New(queue TaskEnqueuer, logger *logrus.Entry) *Scheduler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		queue:   queue,
		logger:  logger.WithField("component", "scheduler"),
		cron:    cron.New(cron.WithParser(parser)),
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a job. An empty schedule disables the job.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		s.logger.WithField("job", job.Name).Info("job disabled, no schedule")
		return nil
	}
	if err := ValidateSchedule(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		if _, err := s.enqueue(context.Background(), job); err != nil {
			s.logger.WithError(err).WithField("job", job.Name).Error("failed to enqueue scheduled task")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	s.entries[job.Name] = entryID
	return nil
}

// Start begins firing jobs in the background until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	for name, job := range s.jobs {
		next, _ := NextRunTime(job.Schedule, time.Now())
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"schedule": job.Schedule,
			"when":     Describe(job.Schedule),
			"next_run": next,
		}).Info("job scheduled")
	}

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()
}

// Stop stops firing jobs and waits for any running job function to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false
	s.logger.Info("scheduler stopped")
}

// RunNow enqueues the named job immediately and returns the task id.
func (s *Scheduler) RunNow(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown job %s", name)
	}
	return s.enqueue(ctx, job)
}

// IsRunning returns whether the scheduler is active
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the named job fires next, or nil when stopped.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	id, ok := s.entries[name]
	if !ok {
		return nil
	}
	t := s.cron.Entry(id).Next
	return &t
}

func (s *Scheduler) enqueue(ctx context.Context, job Job) (string, error) {
	id, err := s.queue.Enqueue(ctx, job.Task)
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{"job": job.Name, "task_id": id}).Info("scheduled task enqueued")
	return id, nil
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime returns the first time after from that schedule fires.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// Describe returns a human-readable description of a cron schedule
func Describe(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 8 * * *":
		return "Daily at 08:00"
	case "30 3 * * *":
		return "Daily at 03:30"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}
