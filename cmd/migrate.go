package cmd

import (
	"context"
	"log"

	"github.com/frahmantamala/pocket-ledger/internal/database"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations against the configured database",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("migrate: failed to open DB: %v\n", err)
	}
	defer func() { _ = database.Close(db) }()

	if migrateRollback {
		if err := database.Rollback(ctx, db, cfg.Database.Driver); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		return nil
	}

	if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		log.Fatalf("migrate up: %v", err)
	}

	return nil
}
