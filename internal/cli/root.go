// Package cli implements the library-manager command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entrypoint"
)

// NewRootCommand builds the command tree. Running without a subcommand
// starts the HTTP server.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "library-manager",
		Short:         "Library management server and administration tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(config.NewConfig(), version)
		},
	}

	root.AddCommand(
		newServeCommand(version),
		NewCreateAdminCommand().Command(),
		NewOverdueScanCommand().Command(),
		NewExportIssuedCommand().Command(),
	)
	return root
}

func newServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(config.NewConfig(), version)
		},
	}
}

// openApp loads the configuration, overriding the database path when given.
func openApp(dbPath string) (*entrypoint.App, error) {
	cfg := config.NewConfig()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return entrypoint.NewApp(cfg)
}
