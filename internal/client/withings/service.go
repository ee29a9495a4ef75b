package withings

import (
	"context"
	"time"
)

type MeasureService interface {
	// GetMeasurements returns every body measurement group dated within [start, end], in API order.
	GetMeasurements(ctx context.Context, start, end time.Time) ([]MeasureGroup, error)
	// GetHeight returns the most recently dated height in meters, nil when none was ever recorded.
	GetHeight(ctx context.Context) (*float64, error)
}
