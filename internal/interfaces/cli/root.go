// Package cli implements the lobbyreg administrative command line:
// version info, config checking, and database migrations.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/opencivic/lobbyreg/internal/config"
)

// Build-time variables, injected by the main package via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lobbyreg",
		Short: "Lobbyist registration compliance service administration",
		Long: `Administrative commands for the lobbyist registration compliance
service: database migrations, configuration checks, and build info.

The API server and the compliance scan worker are separate binaries
(apiserver and worker); this tool covers the operational tasks around
them.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to configuration file")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newDeadlineCmd())
	return root
}

// Execute runs the CLI and returns the first command error.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads and validates the configuration file named by --config.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
