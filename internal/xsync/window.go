package xsync

import (
	"time"

	"github.com/garrettladley/withings-sync/internal/credential"
)

// endOfDay is added to the To date's midnight so the window covers the whole day.
const endOfDay = 86399 * time.Second

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window computes the inclusive [start, end] range for a run. Without an explicit From, start is
// one second past the oldest watermark across platforms, or today when any platform has none.
func Window(req Request, now time.Time, store Store, platforms []credential.Platform) (time.Time, time.Time) {
	to := req.To
	if to.IsZero() {
		to = now
	}
	end := midnightUTC(to).Add(endOfDay)

	if req.From != nil {
		return midnightUTC(*req.From), end
	}

	var (
		oldest int64
		found  bool
	)
	for _, p := range platforms {
		ts, ok := store.Watermark(p)
		if !ok {
			return midnightUTC(now), end
		}
		if !found || ts < oldest {
			oldest = ts
			found = true
		}
	}
	if !found {
		return midnightUTC(now), end
	}
	return time.Unix(oldest+1, 0).UTC(), end
}
