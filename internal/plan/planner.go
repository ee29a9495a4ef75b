package plan

import (
	"errors"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/garrettladley/withings-sync/internal/client/withings"
	"github.com/garrettladley/withings-sync/internal/xslog"
)

var ErrNoRecords = errors.New("no weight or blood pressure records in measurement groups")

type Result struct {
	// Records is ordered by ascending timestamp with at most one record per timestamp.
	Records []Record
	// Latest is the record with the greatest timestamp.
	Latest Record
}

func (r *Result) Weights() []*Weight {
	var out []*Weight
	for _, rec := range r.Records {
		if w, ok := rec.(*Weight); ok {
			out = append(out, w)
		}
	}
	return out
}

func (r *Result) BloodPressures() []*BloodPressure {
	var out []*BloodPressure
	for _, rec := range r.Records {
		if bp, ok := rec.(*BloodPressure); ok {
			out = append(out, bp)
		}
	}
	return out
}

type Planner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{logger: logger}
}

// Plan classifies groups into records, keyed by timestamp with the last group winning.
func (p *Planner) Plan(height *float64, groups []withings.MeasureGroup) (*Result, error) {
	byTime := make(map[int64]Record, len(groups))

	for _, group := range groups {
		rec := classify(height, group)
		if rec == nil {
			p.logger.Info("skipping measurement group without weight or blood pressure",
				slog.Int64("grpid", group.ID),
				slog.Time("date", group.Time()),
				slog.Any("measures", describe(group.Measures)),
			)
			continue
		}

		if prev, ok := byTime[group.Date]; ok {
			p.logger.Debug("replacing record with same timestamp",
				slog.Time("date", group.Time()),
				xslog.Kind(prev.Kind().String()),
			)
		}
		byTime[group.Date] = rec
	}

	if len(byTime) == 0 {
		return nil, ErrNoRecords
	}

	records := make([]Record, 0, len(byTime))
	for _, rec := range byTime {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b Record) int {
		return a.Timestamp().Compare(b.Timestamp())
	})

	p.logger.Debug("planned records", xslog.Count(len(records)))

	return &Result{
		Records: records,
		Latest:  records[len(records)-1],
	}, nil
}

func classify(height *float64, group withings.MeasureGroup) Record {
	at := group.Time()

	if weight, ok := group.Weight(); ok {
		w := &Weight{
			At:         at,
			Weight:     weight,
			FatRatio:   optional(group.FatRatio()),
			MuscleMass: optional(group.MuscleMass()),
			Hydration:  optional(group.Hydration()),
			BoneMass:   optional(group.BoneMass()),
			Height:     height,
			raw:        group.Measures,
		}
		if height != nil && *height > 0 {
			bmi := round(weight/(*height**height), 1)
			w.BMI = &bmi
		}
		if w.Hydration != nil && weight != 0 {
			pct := round(*w.Hydration*100/weight, 2)
			w.PercentHydration = &pct
		}
		return w
	}

	if diastolic, ok := group.Diastolic(); ok {
		return &BloodPressure{
			At:         at,
			Diastolic:  diastolic,
			Systolic:   optional(group.Systolic()),
			HeartPulse: optional(group.HeartPulse()),
			raw:        group.Measures,
		}
	}

	return nil
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

func describe(measures []withings.Measure) []string {
	out := make([]string, len(measures))
	for i, m := range measures {
		out[i] = m.String()
	}
	return out
}

// Window reports the first and last record timestamps.
func (r *Result) Window() (time.Time, time.Time) {
	return r.Records[0].Timestamp(), r.Latest.Timestamp()
}
