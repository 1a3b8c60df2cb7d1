package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiworld/gateway/db"
	"github.com/aiworld/gateway/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(*cobra.Command, []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
