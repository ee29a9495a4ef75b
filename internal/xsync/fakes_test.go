package xsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/garrettladley/withings-sync/internal/client/garmin"
	"github.com/garrettladley/withings-sync/internal/client/withings"
	"github.com/garrettladley/withings-sync/internal/credential"
	"github.com/garrettladley/withings-sync/internal/repository"
)

var (
	errBoom = errors.New("boom")
	now     = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	marks map[credential.Platform]int64
	saves int
	err   error
}

func newMemStore() *memStore {
	return &memStore{marks: map[credential.Platform]int64{}}
}

func (m *memStore) Watermark(p credential.Platform) (int64, bool) {
	ts, ok := m.marks[p]
	return ts, ok
}

func (m *memStore) SetWatermark(p credential.Platform, ts int64) { m.marks[p] = ts }

func (m *memStore) Save() error {
	m.saves++
	return m.err
}

type fakeSession struct {
	err   error
	calls int
}

func (f *fakeSession) Bootstrap(context.Context) error {
	f.calls++
	return f.err
}

type fakeMeasure struct {
	height     *float64
	groups     []withings.MeasureGroup
	err        error
	start, end time.Time
	calls      int
}

func (f *fakeMeasure) GetMeasurements(_ context.Context, start, end time.Time) ([]withings.MeasureGroup, error) {
	f.calls++
	f.start, f.end = start, end
	return f.groups, f.err
}

func (f *fakeMeasure) GetHeight(context.Context) (*float64, error) {
	return f.height, nil
}

type fakeDestination struct {
	platform credential.Platform
	err      error
	batches  []*Batch
}

func (f *fakeDestination) Platform() credential.Platform { return f.platform }

func (f *fakeDestination) Deliver(_ context.Context, batch *Batch) error {
	f.batches = append(f.batches, batch)
	return f.err
}

type fakeSink struct {
	err     error
	batches []*Batch
}

func (*fakeSink) Name() string { return "fake" }

func (f *fakeSink) Write(_ context.Context, batch *Batch) error {
	f.batches = append(f.batches, batch)
	return f.err
}

type memRuns struct {
	mu   sync.Mutex
	runs []repository.SyncRun
}

func (m *memRuns) Insert(_ context.Context, run *repository.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRuns) ListRecent(context.Context, int) ([]repository.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs, nil
}

type fakeUploader struct {
	results []*garmin.UploadResult
	err     error
	names   []string
}

func (f *fakeUploader) Upload(_ context.Context, name string, _ []byte) (*garmin.UploadResult, error) {
	f.names = append(f.names, name)
	if f.err != nil {
		return nil, f.err
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r, nil
}

func weightGroup(date int64, grams int64) withings.MeasureGroup {
	return withings.MeasureGroup{
		ID:       date,
		Date:     date,
		Category: 1,
		Measures: []withings.Measure{{Type: withings.TypeWeight, Raw: grams, Unit: -3}},
	}
}

func bpGroup(date int64) withings.MeasureGroup {
	return withings.MeasureGroup{
		ID:       date,
		Date:     date,
		Category: 1,
		Measures: []withings.Measure{
			{Type: withings.TypeDiastolic, Raw: 80, Unit: 0},
			{Type: withings.TypeSystolic, Raw: 120, Unit: 0},
			{Type: withings.TypeHeartPulse, Raw: 60, Unit: 0},
		},
	}
}
