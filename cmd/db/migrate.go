package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/config"
	"github.com/garrettladley/withings-sync/internal/db"
	"github.com/garrettladley/withings-sync/internal/paths"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Applies migrations to the local sqlite database and, when HISTORY_DSN points at postgres, to the history store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			dir, err := paths.EnsureDir(cfg.ConfigDir)
			if err != nil {
				return err
			}

			sqlDB, err := db.Open(ctx, paths.DB(dir))
			if err != nil {
				return err
			}
			defer func() {
				_ = sqlDB.Close()
			}()
			fmt.Printf("Migrations applied: %s\n", paths.DB(dir))

			if cfg.HistoryUsesPostgres() {
				pool, err := db.OpenPostgres(ctx, cfg.HistoryDSN)
				if err != nil {
					return err
				}
				pool.Close()
				fmt.Println("Migrations applied: postgres history store")
			}
			return nil
		},
	}
}
