package xsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/garrettladley/withings-sync/internal/export"
	"github.com/garrettladley/withings-sync/internal/paths"
	"github.com/garrettladley/withings-sync/internal/plan"
	"github.com/garrettladley/withings-sync/internal/xslog"
)

var ErrEmptyBatch = errors.New("batch has no fit data")

// StdoutSink writes the weight file, or the blood pressure file when there are no weights.
type StdoutSink struct {
	w io.Writer
}

func NewStdoutSink(w io.Writer) *StdoutSink {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutSink{w: w}
}

func (*StdoutSink) Name() string { return "stdout" }

func (s *StdoutSink) Write(_ context.Context, batch *Batch) error {
	data := batch.Weight
	if data == nil {
		data = batch.BloodPressure
	}
	if data == nil {
		return ErrEmptyBatch
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write fit to stdout: %w", err)
	}
	return nil
}

// FITDirSink keeps a copy of each encoded file under dir.
type FITDirSink struct {
	fs  afero.Fs
	dir string
}

func NewFITDirSink(fs afero.Fs, dir string) *FITDirSink {
	return &FITDirSink{fs: fs, dir: dir}
}

func (*FITDirSink) Name() string { return "fit_dir" }

func (s *FITDirSink) Write(_ context.Context, batch *Batch) error {
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create fit dir: %w", err)
	}
	files := map[plan.Kind][]byte{
		plan.KindWeight:        batch.Weight,
		plan.KindBloodPressure: batch.BloodPressure,
	}
	for kind, data := range files {
		if data == nil {
			continue
		}
		if err := afero.WriteFile(s.fs, paths.FIT(s.dir, kind.String()), data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s fit: %w", kind, err)
		}
	}
	return nil
}

// JSONSink exports the planned records as a JSON document keyed by timestamp.
type JSONSink struct {
	writer *export.Writer
	path   string
}

func NewJSONSink(writer *export.Writer, path string) *JSONSink {
	return &JSONSink{writer: writer, path: path}
}

func (s *JSONSink) Name() string { return s.writer.Name() }

func (s *JSONSink) Write(ctx context.Context, batch *Batch) error {
	n, err := s.writer.Write(s.path, batch.Result.Records)
	if err != nil {
		return err
	}
	xslog.FromContext(ctx).DebugContext(ctx, "exported records", xslog.Path(s.path), xslog.Bytes(n))
	return nil
}
