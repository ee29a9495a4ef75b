package xsync

import (
	"fmt"
	"time"

	"github.com/garrettladley/withings-sync/internal/fit"
	"github.com/garrettladley/withings-sync/internal/plan"
)

// Batch is the encoded output of one run.
type Batch struct {
	// Weight is a weight-scale FIT file, nil when the run had no weight records.
	Weight []byte
	// BloodPressure is a blood-pressure FIT file, nil when the run had none.
	BloodPressure []byte
	Result        *plan.Result
	Start         time.Time
	End           time.Time
}

func buildBatch(result *plan.Result, created time.Time) (*Batch, error) {
	batch := &Batch{Result: result}

	if weights := result.Weights(); len(weights) > 0 {
		data, err := encodeWeights(weights, created)
		if err != nil {
			return nil, fmt.Errorf("failed to encode weight fit: %w", err)
		}
		batch.Weight = data
	}

	if bps := result.BloodPressures(); len(bps) > 0 {
		data, err := encodeBloodPressures(bps, created)
		if err != nil {
			return nil, fmt.Errorf("failed to encode blood pressure fit: %w", err)
		}
		batch.BloodPressure = data
	}

	return batch, nil
}

func encodeWeights(weights []*plan.Weight, created time.Time) ([]byte, error) {
	enc := fit.NewEncoder(fit.FileTypeWeight)
	if err := enc.WriteFileInfo(created); err != nil {
		return nil, err
	}
	for _, w := range weights {
		if err := enc.WriteDeviceInfo(w.At); err != nil {
			return nil, err
		}
		if err := enc.WriteWeightScale(w.At, fit.WeightScale{
			Weight:           w.Weight,
			PercentFat:       w.FatRatio,
			PercentHydration: w.PercentHydration,
			BoneMass:         w.BoneMass,
			MuscleMass:       w.MuscleMass,
			BMI:              w.BMI,
		}); err != nil {
			return nil, err
		}
	}
	if err := enc.Finish(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func encodeBloodPressures(bps []*plan.BloodPressure, created time.Time) ([]byte, error) {
	enc := fit.NewEncoder(fit.FileTypeBloodPressure)
	if err := enc.WriteFileInfo(created); err != nil {
		return nil, err
	}
	for _, bp := range bps {
		if err := enc.WriteDeviceInfo(bp.At); err != nil {
			return nil, err
		}
		if err := enc.WriteBloodPressure(bp.At, fit.BloodPressure{
			Systolic:  bp.Systolic,
			Diastolic: bp.Diastolic,
			HeartRate: bp.HeartPulse,
		}); err != nil {
			return nil, err
		}
	}
	if err := enc.Finish(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
