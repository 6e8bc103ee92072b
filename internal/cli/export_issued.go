package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrlokans/library-manager/internal/entrypoint"
)

// ExportIssuedCommand writes the issued books report as CSV.
type ExportIssuedCommand struct {
	DatabasePath string
	OutputPath   string

	out io.Writer
}

func NewExportIssuedCommand() *ExportIssuedCommand {
	return &ExportIssuedCommand{out: os.Stdout}
}

func (cmd *ExportIssuedCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "export-issued",
		Short: "Export the issued books report as CSV",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			app, err := openApp(cmd.DatabasePath)
			if err != nil {
				return err
			}
			defer app.Close()
			return cmd.Run(app)
		},
	}

	c.Flags().StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (defaults to DATABASE_PATH)")
	c.Flags().StringVarP(&cmd.OutputPath, "output", "o", "", "Write to this file instead of stdout")
	return c
}

func (cmd *ExportIssuedCommand) Run(app *entrypoint.App) error {
	if cmd.OutputPath == "" {
		return app.Reports.ExportIssuedBooksCSV(cmd.out)
	}

	f, err := os.Create(cmd.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", cmd.OutputPath, err)
	}
	if err := app.Reports.ExportIssuedBooksCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
