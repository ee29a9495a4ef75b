package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/client/garmin"
)

func resetCmd(opts *globalOptions) *cobra.Command {
	var dropGarmin bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the stored Withings credentials",
		Long:  "Overwrites the credential document with defaults so the next sync asks for a new authorization code. Watermarks are cleared too.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.credentials()
			if err != nil {
				return err
			}
			if err := store.Reset(); err != nil {
				return fmt.Errorf("failed to reset credentials: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials reset: %s\n", store.Path())

			if dropGarmin {
				if err := a.repo.Tokens.Delete(ctx, garmin.Provider); err != nil {
					return fmt.Errorf("failed to delete garmin token: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Garmin token removed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dropGarmin, "garmin", false, "also remove the stored Garmin Connect token")
	return cmd
}
