package export

import (
	"fmt"
	"path/filepath"
	"strings"

	go_json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/garrettladley/withings-sync/internal/plan"
)

const (
	TimeLayout = "2006-01-02 15:04:05"

	zstdSuffix = ".zst"
)

type Value struct {
	Value float64 `json:"Value"`
	Unit  string  `json:"Unit"`
}

// Document maps a formatted UTC timestamp to the named values recorded at that instant.
type Document map[string]map[string]Value

func Build(records []plan.Record) Document {
	doc := make(Document, len(records))
	for _, rec := range records {
		entry := make(map[string]Value, len(rec.Measures())+2)
		for _, m := range rec.Measures() {
			name := m.Type.String()
			if _, ok := entry[name]; ok {
				continue
			}
			entry[name] = Value{Value: m.Value(), Unit: m.Type.Unit()}
		}
		if w, ok := rec.(*plan.Weight); ok {
			if w.BMI != nil {
				entry["BMI"] = Value{Value: *w.BMI, Unit: "kg/m2"}
			}
			if w.PercentHydration != nil {
				entry["Percent Hydration"] = Value{Value: *w.PercentHydration, Unit: "%"}
			}
		}
		doc[rec.Timestamp().UTC().Format(TimeLayout)] = entry
	}
	return doc
}

type Writer struct {
	fs afero.Fs
}

func NewWriter(fs afero.Fs) *Writer {
	return &Writer{fs: fs}
}

func (w *Writer) Name() string { return "json" }

// Write encodes records to path, zstd-compressed when path ends in .zst.
func (w *Writer) Write(path string, records []plan.Record) (int, error) {
	data, err := go_json.MarshalIndent(Build(records), "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}

	if strings.HasSuffix(path, zstdSuffix) {
		data, err = compress(data)
		if err != nil {
			return 0, err
		}
	}

	if err := w.fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(w.fs, tmp, data, 0o600); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	if err := w.fs.Rename(tmp, path); err != nil {
		_ = w.fs.Remove(tmp)
		return 0, fmt.Errorf("failed to replace export: %w", err)
	}
	return len(data), nil
}

func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer func() { _ = encoder.Close() }()
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}
