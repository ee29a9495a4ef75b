package xsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garrettladley/withings-sync/internal/credential"
	"github.com/garrettladley/withings-sync/internal/plan"
	"github.com/garrettladley/withings-sync/internal/repository"
	"github.com/garrettladley/withings-sync/internal/xslog"
)

// Run performs one sync. Errors wrapping ErrNothingToSync mean the window held nothing new; the
// report is returned alongside any error once the window is known.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	startedAt := s.now()
	runID := s.newID()
	logger := s.logger.With(xslog.RunID(runID))
	ctx = xslog.WithLogger(ctx, logger)

	start, end := Window(req, startedAt, s.store, s.Platforms())
	report := &Report{RunID: runID, Start: start, End: end}
	run := repository.NewRun(runID, startedAt)
	run.WindowStart = start.Unix()
	run.WindowEnd = end.Unix()

	err := s.run(ctx, logger, report)

	s.record(ctx, logger, run, report, err)
	return report, err
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, report *Report) error {
	if report.Start.After(report.End) {
		logger.InfoContext(ctx, "already synced through the requested period",
			xslog.Start(report.Start),
			xslog.End(report.End),
		)
		return ErrNoMeasurements
	}

	if err := s.session.Bootstrap(ctx); err != nil {
		// keep a cleared authorization code so the next run prompts again
		if saveErr := s.store.Save(); saveErr != nil {
			logger.ErrorContext(ctx, "failed to save credentials", xslog.Error(saveErr))
		}
		return fmt.Errorf("failed to authorize withings session: %w", err)
	}
	if err := s.store.Save(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	height, err := s.measure.GetHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch height: %w", err)
	}
	if height == nil {
		logger.DebugContext(ctx, "no height on record, skipping bmi")
	}

	logger.InfoContext(ctx, "fetching measurements", xslog.Start(report.Start), xslog.End(report.End))
	groups, err := s.measure.GetMeasurements(ctx, report.Start, report.End)
	if err != nil {
		return fmt.Errorf("failed to fetch measurements: %w", err)
	}
	report.Groups = len(groups)
	if len(groups) == 0 {
		logger.ErrorContext(ctx, "No measurements to upload for date or period specified")
		return ErrNoMeasurements
	}

	result, err := s.planner.Plan(height, groups)
	if err != nil {
		if errors.Is(err, plan.ErrNoRecords) {
			logger.ErrorContext(ctx, "No weight or blood pressure measurements in the fetched groups", xslog.Count(len(groups)))
			return ErrNoRecords
		}
		return fmt.Errorf("failed to plan records: %w", err)
	}
	report.Latest = result.Latest
	report.Weights = len(result.Weights())
	report.BloodPressures = len(result.BloodPressures())

	batch, err := buildBatch(result, s.now())
	if err != nil {
		return err
	}
	batch.Start, batch.End = report.Start, report.End

	for _, sink := range s.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			logger.ErrorContext(ctx, "failed to write output", xslog.Kind(sink.Name()), xslog.Error(err))
			continue
		}
		logger.DebugContext(ctx, "wrote output", xslog.Kind(sink.Name()))
	}

	var errs []error
	for _, dest := range s.destinations {
		platform := dest.Platform()
		if err := dest.Deliver(ctx, batch); err != nil {
			logger.ErrorContext(ctx, "delivery failed", xslog.Platform(platform.String()), xslog.Error(err))
			report.Failed = append(report.Failed, platform)
			s.metrics.IncDelivery(platform.String(), false)
			errs = append(errs, fmt.Errorf("%s: %w", platform, err))
			continue
		}
		s.store.SetWatermark(platform, report.End.Unix())
		s.metrics.IncDelivery(platform.String(), true)
		s.metrics.SetWatermark(platform.String(), report.End.Unix())
		report.Delivered = append(report.Delivered, platform)
		logger.InfoContext(ctx, "delivered measurements",
			xslog.Platform(platform.String()),
			xslog.Watermark(report.End.Unix()),
		)
	}

	if err := s.store.Save(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
	}
	return nil
}

// record persists the run history and metrics; failures here never change the run's outcome.
func (s *Service) record(ctx context.Context, logger *slog.Logger, run *repository.SyncRun, report *Report, runErr error) {
	outcome := repository.OutcomeSuccess
	switch {
	case errors.Is(runErr, ErrNothingToSync):
		outcome = repository.OutcomeNothingToSync
	case runErr != nil:
		outcome = repository.OutcomeFailed
	}

	finishedAt := s.now()
	run.Groups = report.Groups
	run.Weights = report.Weights
	run.BloodPressures = report.BloodPressures
	run.Delivered = platformNames(report.Delivered)
	run.Finish(finishedAt, outcome, runErr)

	if s.runs != nil {
		if err := s.runs.Insert(ctx, run); err != nil {
			logger.ErrorContext(ctx, "failed to record sync run", xslog.Error(err))
		}
	}

	s.metrics.ObserveRun(string(outcome), finishedAt, run.Duration())
	s.metrics.SetGroups(report.Groups)
	s.metrics.SetRecords(plan.KindWeight.String(), report.Weights)
	s.metrics.SetRecords(plan.KindBloodPressure.String(), report.BloodPressures)
	if err := s.metrics.Flush(); err != nil {
		logger.ErrorContext(ctx, "failed to flush metrics", xslog.Error(err))
	}

	logger.DebugContext(ctx, "sync run finished",
		xslog.State(string(outcome)),
		xslog.Duration(finishedAt.Sub(run.StartedAt)),
		xslog.Count(report.Groups),
	)
}

func platformNames(platforms []credential.Platform) []string {
	if len(platforms) == 0 {
		return nil
	}
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = p.String()
	}
	return names
}
