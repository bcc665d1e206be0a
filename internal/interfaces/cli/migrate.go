package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/opencivic/lobbyreg/internal/config"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/postgres"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
)

const defaultMigrationsPath = "file://internal/infrastructure/database/postgres/migrations"

func newMigrateCmd() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", defaultMigrationsPath, "migrations source URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(logging.LogConfig{Level: cfg.Log.Level, Format: "console"})
			if err != nil {
				return err
			}
			conn, err := postgres.NewConnection(postgres.FromConfig(cfg.Database), log)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := conn.RunMigrations(migrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	rollback := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			steps, err := cmd.Flags().GetInt("steps")
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(databaseURL(cfg.Database), migrationsPath, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d step(s)\n", steps)
			return nil
		},
	}
	rollback.Flags().Int("steps", 1, "number of migration steps to roll back")
	cmd.AddCommand(rollback)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(databaseURL(cfg.Database), migrationsPath)
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (%s)\n", version, state)
			return nil
		},
	})

	return cmd
}

// databaseURL builds a postgres:// URL for golang-migrate from the
// database config.
func databaseURL(c config.DatabaseConfig) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.DBName,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}
