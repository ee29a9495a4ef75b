package main

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/version"
	"github.com/garrettladley/withings-sync/internal/xsync"
)

const exitNothingToSync = 2

func main() {
	_ = godotenv.Load()

	var (
		opts     globalOptions
		syncOpts syncOptions
	)
	rootCmd := &cobra.Command{
		Use:     "withings-sync",
		Short:   "Sync Withings body measurements to Garmin Connect",
		Version: version.Get(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, &opts, &syncOpts)
		},
	}
	opts.register(rootCmd)
	syncOpts.register(rootCmd)

	rootCmd.AddCommand(resetCmd(&opts))
	rootCmd.AddCommand(statusCmd(&opts))
	rootCmd.AddCommand(historyCmd(&opts))
	rootCmd.AddCommand(garminCmd(&opts))

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		if errors.Is(err, xsync.ErrNothingToSync) {
			os.Exit(exitNothingToSync)
		}
		os.Exit(1)
	}
}
