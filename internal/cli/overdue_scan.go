package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/library-manager/internal/entrypoint"
	"github.com/mrlokans/library-manager/internal/mail"
	"github.com/mrlokans/library-manager/internal/tasks"
)

// OverdueScanCommand runs one overdue reminder scan outside the scheduler.
type OverdueScanCommand struct {
	DatabasePath string
	// SendNow delivers the reminders directly instead of queueing them for
	// the server's workers.
	SendNow bool
	Timeout time.Duration

	out io.Writer
}

func NewOverdueScanCommand() *OverdueScanCommand {
	return &OverdueScanCommand{out: os.Stdout}
}

func (cmd *OverdueScanCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "overdue-scan",
		Short: "Send reminders for overdue loans",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			app, err := openApp(cmd.DatabasePath)
			if err != nil {
				return err
			}
			defer app.Close()
			return cmd.Run(c.Context(), app)
		},
	}

	c.Flags().StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (defaults to DATABASE_PATH)")
	c.Flags().BoolVar(&cmd.SendNow, "send-now", false, "Deliver through the mailer instead of the task queue")
	c.Flags().DurationVar(&cmd.Timeout, "timeout", 2*time.Minute, "Give up after this long")
	return c
}

func (cmd *OverdueScanCommand) Run(ctx context.Context, app *entrypoint.App) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var queue tasks.Enqueuer
	if cmd.SendNow {
		queue = directQueue{mailer: app.Mailer}
	} else {
		client, err := app.StartTasks()
		if err != nil {
			return err
		}
		queue = tasks.NewEmailQueue(client)
	}

	queued, err := app.OverdueReminder(queue).Run(ctx)
	if err != nil {
		return fmt.Errorf("overdue scan failed: %w", err)
	}

	verb := "Queued"
	if cmd.SendNow {
		verb = "Sent"
	}
	fmt.Fprintf(cmd.out, "%s %d overdue reminder(s)\n", verb, queued)
	return nil
}

// directQueue delivers immediately. It satisfies tasks.Enqueuer so the same
// reminder logic runs with or without the queue.
type directQueue struct {
	mailer mail.Mailer
}

func (q directQueue) Enqueue(ctx context.Context, msg mail.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	return "", q.mailer.Send(ctx, msg)
}
