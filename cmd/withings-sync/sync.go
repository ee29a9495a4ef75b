package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/client/garmin"
	"github.com/garrettladley/withings-sync/internal/client/withings"
	"github.com/garrettladley/withings-sync/internal/export"
	"github.com/garrettladley/withings-sync/internal/metrics"
	"github.com/garrettladley/withings-sync/internal/oauth"
	"github.com/garrettladley/withings-sync/internal/plan"
	"github.com/garrettladley/withings-sync/internal/xslog"
	"github.com/garrettladley/withings-sync/internal/xsync"
)

const dateLayout = "2006-01-02"

type syncOptions struct {
	from     string
	to       string
	noUpload bool
	fitDir   string
	jsonOut  string
}

func (o *syncOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.from, "from", "f", "", "first day to sync (YYYY-MM-DD), defaults to the day after the last sync")
	flags.StringVarP(&o.to, "to", "t", "", "last day to sync (YYYY-MM-DD), defaults to today")
	flags.BoolVar(&o.noUpload, "no-upload", false, "write the weight fit file to stdout instead of uploading")
	flags.StringVar(&o.fitDir, "fit-dir", "", "directory to keep copies of the encoded fit files")
	flags.StringVar(&o.jsonOut, "json-out", "", "write the synced records as json (zstd when the name ends in .zst)")
}

func (o syncOptions) request() (xsync.Request, error) {
	var req xsync.Request
	if o.from != "" {
		from, err := time.Parse(dateLayout, o.from)
		if err != nil {
			return req, fmt.Errorf("invalid --from %q: %w", o.from, err)
		}
		req.From = &from
	}
	if o.to != "" {
		to, err := time.Parse(dateLayout, o.to)
		if err != nil {
			return req, fmt.Errorf("invalid --to %q: %w", o.to, err)
		}
		req.To = to
	}
	if req.From != nil && !req.To.IsZero() && req.From.After(req.To) {
		return req, fmt.Errorf("--from %s is after --to %s", o.from, o.to)
	}
	return req, nil
}

func runSync(cmd *cobra.Command, opts *globalOptions, syncOpts *syncOptions) error {
	ctx := cmd.Context()

	req, err := syncOpts.request()
	if err != nil {
		return err
	}

	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.credentials()
	if err != nil {
		return err
	}

	session := a.session(store, &oauth.TerminalPrompter{In: os.Stdin, Out: os.Stderr, OpenBrowser: true})

	measurements := withings.New(session,
		withings.WithBaseURL(a.cfg.WithingsURL),
		withings.WithLogger(a.logger),
		withings.WithTimeout(a.cfg.HTTPTimeout),
	)

	svcOpts := []xsync.Option{
		xsync.WithHistory(a.repo.Runs),
		xsync.WithMetrics(metrics.New(a.cfg.MetricsTextfile)),
		xsync.WithLogger(a.logger),
	}

	if syncOpts.noUpload {
		svcOpts = append(svcOpts, xsync.WithSinks(xsync.NewStdoutSink(cmd.OutOrStdout())))
	} else {
		tokens := oauth.NewDBTokenSource(garmin.Provider, a.repo.Tokens)
		ok, err := tokens.HasToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to read garmin token: %w", err)
		}
		if !ok {
			return fmt.Errorf("no garmin token stored, run `withings-sync garmin login` or pass --no-upload")
		}
		uploader := garmin.New(tokens,
			garmin.WithUploadURL(a.cfg.GarminURL),
			garmin.WithLogger(a.logger),
			garmin.WithTimeout(a.cfg.HTTPTimeout),
		)
		svcOpts = append(svcOpts, xsync.WithDestinations(xsync.NewGarminDestination(uploader)))
	}
	if syncOpts.fitDir != "" {
		svcOpts = append(svcOpts, xsync.WithSinks(xsync.NewFITDirSink(a.fs, syncOpts.fitDir)))
	}
	if syncOpts.jsonOut != "" {
		svcOpts = append(svcOpts, xsync.WithSinks(xsync.NewJSONSink(export.NewWriter(a.fs), syncOpts.jsonOut)))
	}

	svc := xsync.NewService(store, session, measurements.Measure, plan.New(a.logger), svcOpts...)

	report, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "sync complete",
		xslog.RunID(report.RunID),
		xslog.Start(report.Start),
		xslog.End(report.End),
		xslog.Count(report.Weights+report.BloodPressures),
	)
	return nil
}
