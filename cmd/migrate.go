package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/set-night/companion/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply snapshot storage migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Opening the store checks connectivity and creates the sqlite file location.
	store, err := repository.Open(cmd.Context(), cfg.StorageDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	migrations, err := repository.Migrations(cfg.StorageDriver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := repository.RunMigrations(cfg.MigrationURL(), migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("migrate finished", "driver", cfg.StorageDriver)
	return nil
}
