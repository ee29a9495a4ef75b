package xslog

import (
	"log/slog"
	"time"

	"github.com/garrettladley/withings-sync/internal/version"
)

const (
	keyError = "error"
)

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}

func RunID(runID string) slog.Attr {
	const runIDKey = "run_id"
	return slog.String(runIDKey, runID)
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func Version() slog.Attr {
	const versionKey = "version"
	return slog.String(versionKey, version.Get())
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}

func Start(t time.Time) slog.Attr {
	const startKey = "start"
	return slog.Time(startKey, t)
}

func End(t time.Time) slog.Attr {
	const endKey = "end"
	return slog.Time(endKey, t)
}

func Platform(platform string) slog.Attr {
	const platformKey = "platform"
	return slog.String(platformKey, platform)
}

func Path(path string) slog.Attr {
	const pathKey = "path"
	return slog.String(pathKey, path)
}

func State(state string) slog.Attr {
	const stateKey = "state"
	return slog.String(stateKey, state)
}

func Watermark(ts int64) slog.Attr {
	const watermarkKey = "watermark"
	return slog.Int64(watermarkKey, ts)
}

func Kind(kind string) slog.Attr {
	const kindKey = "kind"
	return slog.String(kindKey, kind)
}

func Bytes(n int) slog.Attr {
	const bytesKey = "bytes"
	return slog.Int(bytesKey, n)
}
