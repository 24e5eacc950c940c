package cmd

import (
	"fmt"

	"github.com/jmehdipour/prompt-vault/internal/config"
	"github.com/jmehdipour/prompt-vault/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables for the configured database (and ClickHouse, when configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx := cmd.Context()

		sqlDB, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, sqlOpts(cfg.Database))
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if err := db.ApplySchema(ctx, sqlDB, cfg.Database.Driver); err != nil {
			return fmt.Errorf("apply %s schema: %w", cfg.Database.Driver, err)
		}
		fmt.Printf(">> %s schema applied\n", cfg.Database.Driver)

		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, sqlOpts(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		if chDB == nil {
			return nil
		}
		defer chDB.Close()

		if err := db.ApplySchema(ctx, chDB, db.DriverClickHouse); err != nil {
			return fmt.Errorf("apply clickhouse schema: %w", err)
		}
		fmt.Println(">> clickhouse schema applied")
		return nil
	},
}
