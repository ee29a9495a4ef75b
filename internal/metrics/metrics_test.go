package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopWhenPathEmpty(t *testing.T) {
	t.Parallel()

	m := New("")
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when no textfile is configured")

	m.ObserveRun("success", time.Now(), time.Second)
	m.SetGroups(3)
	m.SetRecords("weight", 2)
	m.IncDelivery("garmin", true)
	m.SetWatermark("garmin", 1)
	require.NoError(t, m.Flush())
}

func TestTextfileFlush(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "withings_sync.prom")
	m := New(path)
	_, ok := m.(*TextfileMetrics)
	require.True(t, ok)

	m.ObserveRun("success", time.Unix(1700000000, 0), 1500*time.Millisecond)
	m.SetGroups(3)
	m.SetRecords("weight", 2)
	m.SetRecords("blood_pressure", 1)
	m.IncDelivery("garmin", true)
	m.SetWatermark("garmin", 1700086399)
	require.NoError(t, m.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `withings_sync_last_run_timestamp_seconds{outcome="success"} 1.7e+09`)
	assert.Contains(t, out, `withings_sync_last_run_duration_seconds 1.5`)
	assert.Contains(t, out, `withings_sync_measure_groups 3`)
	assert.Contains(t, out, `withings_sync_records{kind="weight"} 2`)
	assert.Contains(t, out, `withings_sync_deliveries_total{platform="garmin",result="success"} 1`)
	assert.Contains(t, out, `withings_sync_watermark_timestamp_seconds{platform="garmin"} 1.700086399e+09`)
}
