package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/repository"
)

func historyCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.repo.Runs.ListRecent(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No sync runs recorded")
				return nil
			}

			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%-20s  %-16s  %-23s  %6s  %s", "STARTED", "OUTCOME", "WINDOW", "RECS", "DELIVERED")))
			for _, run := range runs {
				fmt.Fprintln(out, historyRow(run))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", repository.DefaultHistoryLimit, "number of runs to show")
	return cmd
}

func historyRow(run repository.SyncRun) string {
	const day = "2006-01-02"

	outcome := string(run.Outcome)
	style := okStyle
	if run.Outcome == repository.OutcomeFailed {
		style = badStyle
	}

	window := time.Unix(run.WindowStart, 0).UTC().Format(day) + ".." + time.Unix(run.WindowEnd, 0).UTC().Format(day)
	delivered := strings.Join(run.Delivered, ",")
	if delivered == "" {
		delivered = "-"
	}

	line := fmt.Sprintf("%-20s  %s  %-23s  %6d  %s",
		run.StartedAt.UTC().Format(time.DateTime),
		style.Render(fmt.Sprintf("%-16s", outcome)),
		window,
		run.Weights+run.BloodPressures,
		delivered,
	)
	if run.Error != nil {
		line += "\n" + labelStyle.Render("") + badStyle.Render(*run.Error)
	}
	return line
}
