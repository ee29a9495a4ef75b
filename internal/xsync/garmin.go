package xsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/garrettladley/withings-sync/internal/client/garmin"
	"github.com/garrettladley/withings-sync/internal/credential"
	"github.com/garrettladley/withings-sync/internal/xslog"
)

var ErrUploadRejected = errors.New("garmin rejected upload")

type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (*garmin.UploadResult, error)
}

// GarminDestination uploads the weight file and, when present, the blood pressure file.
type GarminDestination struct {
	uploader Uploader
}

func NewGarminDestination(uploader Uploader) *GarminDestination {
	return &GarminDestination{uploader: uploader}
}

func (*GarminDestination) Platform() credential.Platform { return credential.PlatformGarmin }

func (d *GarminDestination) Deliver(ctx context.Context, batch *Batch) error {
	files := []struct {
		name string
		data []byte
	}{
		{name: garmin.DefaultFileName, data: batch.Weight},
		{name: "withings_blood_pressure.fit", data: batch.BloodPressure},
	}

	logger := xslog.FromContext(ctx)
	for _, f := range files {
		if f.data == nil {
			continue
		}
		result, err := d.uploader.Upload(ctx, f.name, f.data)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", f.name, err)
		}
		if !result.Success {
			return fmt.Errorf("%w: %s returned status %d", ErrUploadRejected, f.name, result.StatusCode)
		}
		logger.InfoContext(ctx, "Fit file uploaded to Garmin Connect",
			xslog.Path(f.name),
			xslog.Bytes(len(f.data)),
			xslog.HTTPStatus(result.StatusCode),
		)
	}
	return nil
}
