package plan

import (
	"time"

	"github.com/garrettladley/withings-sync/internal/client/withings"
)

type Kind string

const (
	KindWeight        Kind = "weight"
	KindBloodPressure Kind = "blood_pressure"
)

func (k Kind) String() string { return string(k) }

// Record is a classified measurement group. Weight and BloodPressure are the only implementations.
type Record interface {
	Timestamp() time.Time
	Kind() Kind
	// Measures are the raw measures the record was derived from.
	Measures() []withings.Measure
	record()
}

type Weight struct {
	At               time.Time
	Weight           float64
	FatRatio         *float64
	MuscleMass       *float64
	Hydration        *float64
	BoneMass         *float64
	BMI              *float64
	PercentHydration *float64
	// Height is the profile height the BMI was derived from.
	Height *float64

	raw []withings.Measure
}

var _ Record = (*Weight)(nil)

func (w *Weight) Timestamp() time.Time { return w.At }
func (*Weight) Kind() Kind { return KindWeight }
func (w *Weight) Measures() []withings.Measure { return w.raw }
func (*Weight) record() {}

type BloodPressure struct {
	At         time.Time
	Diastolic  float64
	Systolic   *float64
	HeartPulse *float64

	raw []withings.Measure
}

var _ Record = (*BloodPressure)(nil)

func (b *BloodPressure) Timestamp() time.Time { return b.At }
func (*BloodPressure) Kind() Kind { return KindBloodPressure }
func (b *BloodPressure) Measures() []withings.Measure { return b.raw }
func (*BloodPressure) record() {}
