package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/client/garmin"
	"github.com/garrettladley/withings-sync/internal/config"
	"github.com/garrettladley/withings-sync/internal/db"
	"github.com/garrettladley/withings-sync/internal/paths"
	"github.com/garrettladley/withings-sync/internal/repository"
)

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show the stored Garmin Connect token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			dir, err := paths.Dir(cfg.ConfigDir)
			if err != nil {
				return fmt.Errorf("failed to get config directory: %w", err)
			}

			sqlDB, err := db.Open(ctx, paths.DB(dir))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() {
				_ = sqlDB.Close()
			}()

			token, err := repository.New(sqlDB).Tokens.Get(ctx, garmin.Provider)
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}
			if token == nil {
				fmt.Println("No Garmin token stored")
				return nil
			}

			fmt.Printf("Access Token:  %s\n", token.AccessToken)
			if token.RefreshToken != nil {
				fmt.Printf("Refresh Token: %s\n", *token.RefreshToken)
			}
			fmt.Printf("Token Type:    %s\n", token.TokenType)
			if token.Expiry == nil {
				fmt.Printf("Expiry:        never\n")
				return nil
			}
			fmt.Printf("Expiry:        %s\n", token.Expiry.Format(time.RFC3339))

			if token.Expiry.Before(time.Now()) {
				fmt.Printf("Status:        EXPIRED\n")
			} else {
				fmt.Printf("Status:        Valid (expires in %s)\n", time.Until(*token.Expiry).Round(time.Second))
			}
			return nil
		},
	}
}
