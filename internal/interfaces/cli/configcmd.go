package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration inspection",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  server:   :%d (%s)\n", cfg.Server.Port, cfg.Server.Mode)
			fmt.Fprintf(cmd.OutOrStdout(), "  database: %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
			fmt.Fprintf(cmd.OutOrStdout(), "  redis:    %s\n", cfg.Redis.Addr)
			fmt.Fprintf(cmd.OutOrStdout(), "  kafka:    %v\n", cfg.Kafka.Brokers)
			fmt.Fprintf(cmd.OutOrStdout(), "  minio:    %s/%s\n", cfg.MinIO.Endpoint, cfg.MinIO.Bucket)
			return nil
		},
	})
	return cmd
}
