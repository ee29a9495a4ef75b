package xsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garrettladley/withings-sync/internal/client/withings"
	"github.com/garrettladley/withings-sync/internal/credential"
	"github.com/garrettladley/withings-sync/internal/metrics"
	"github.com/garrettladley/withings-sync/internal/plan"
	"github.com/garrettladley/withings-sync/internal/repository"
)

var (
	// ErrNothingToSync marks runs that found nothing new; the CLI exits 2 on it.
	ErrNothingToSync  = errors.New("nothing to sync")
	ErrNoMeasurements = fmt.Errorf("%w: no measurements to upload for date or period specified", ErrNothingToSync)
	ErrNoRecords      = fmt.Errorf("%w: %w", ErrNothingToSync, plan.ErrNoRecords)
	ErrDelivery       = errors.New("delivery failed")
)

// Store is the slice of the credential document the orchestrator needs.
type Store interface {
	Watermark(p credential.Platform) (int64, bool)
	SetWatermark(p credential.Platform, ts int64)
	Save() error
}

type Bootstrapper interface {
	Bootstrap(ctx context.Context) error
}

type Planner interface {
	Plan(height *float64, groups []withings.MeasureGroup) (*plan.Result, error)
}

// Destination receives a batch on behalf of a platform whose watermark advances on success.
type Destination interface {
	Platform() credential.Platform
	Deliver(ctx context.Context, batch *Batch) error
}

// Sink is a best-effort output; failures are logged and never fail the run.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch *Batch) error
}

type Request struct {
	// From overrides the watermark-derived window start; only the date is used.
	From *time.Time
	// To is the last day of the window; zero means today.
	To time.Time
}

type Report struct {
	RunID          string
	Start          time.Time
	End            time.Time
	Groups         int
	Weights        int
	BloodPressures int
	Latest         plan.Record
	Delivered      []credential.Platform
	Failed         []credential.Platform
}

type Service struct {
	store        Store
	session      Bootstrapper
	measure      withings.MeasureService
	planner      Planner
	destinations []Destination
	sinks        []Sink
	runs         repository.SyncRunRepository
	metrics      metrics.Recorder
	now          func() time.Time
	newID        func() string
	logger       *slog.Logger
}

type Option func(*Service)

func WithDestinations(d ...Destination) Option {
	return func(s *Service) { s.destinations = append(s.destinations, d...) }
}

func WithSinks(sinks ...Sink) Option {
	return func(s *Service) { s.sinks = append(s.sinks, sinks...) }
}

func WithHistory(runs repository.SyncRunRepository) Option {
	return func(s *Service) { s.runs = runs }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, session Bootstrapper, measure withings.MeasureService, planner Planner, opts ...Option) *Service {
	s := &Service{
		store:   store,
		session: session,
		measure: measure,
		planner: planner,
		metrics: metrics.New(""),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Platforms lists the destination platforms whose watermarks drive the window, garmin when none.
func (s *Service) Platforms() []credential.Platform {
	if len(s.destinations) == 0 {
		return []credential.Platform{credential.PlatformGarmin}
	}
	platforms := make([]credential.Platform, 0, len(s.destinations))
	for _, d := range s.destinations {
		platforms = append(platforms, d.Platform())
	}
	return platforms
}
