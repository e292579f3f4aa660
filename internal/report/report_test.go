package report

import (
	"bytes"
	"encoding/csv"
	stdjson "encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavebench/internal/stats"
)

func sampleSummary() stats.Summary {
	return stats.Summary{
		Total:             10,
		Success:           7,
		Fail:              3,
		Wall:              1500 * time.Millisecond,
		RequestsPerSecond: 10 / 1.5,
		Mean:              12500 * time.Microsecond,
		Min:               5 * time.Millisecond,
		Max:               40 * time.Millisecond,
		P50:               10 * time.Millisecond,
		P95:               40 * time.Millisecond,
		P99:               40 * time.Millisecond,
		Statuses:          map[int]uint64{200: 7, 503: 1},
		Reasons: map[stats.Failure]uint64{
			{Type: "Transport Error", Name: "timeout"}: 2,
			{Type: "HTTP Error", Name: "HTTP 503"}:     1,
		},
	}
}

func TestFormat(t *testing.T) {
	res := Format("run-1", 4, sampleSummary())

	assert.Equal(t, uint64(10), res.TotalRequests)
	assert.Equal(t, uint64(7), res.SuccessfulRequests)
	assert.Equal(t, uint64(3), res.FailedRequests)
	assert.Equal(t, int64(1500), res.TotalDurationMs)
	assert.InDelta(t, 12.5, res.AverageResponseMs, 1e-9)
	assert.InDelta(t, 6.6667, res.RequestsPerSecond, 1e-3)
	assert.Equal(t, 5.0, res.MinMs)
	assert.Equal(t, 40.0, res.MaxMs)
	assert.Equal(t, 10.0, res.P50Ms)
	assert.Equal(t, 40.0, res.P95Ms)
	assert.Equal(t, 40.0, res.P99Ms)
	assert.Equal(t, 4, res.Waves)
	assert.Equal(t, map[string]uint64{"200": 7, "503": 1}, res.StatusCodes)

	assert.Equal(t, []ErrorDetail{
		{Name: "timeout", Count: 2, ErrorType: "Transport Error"},
		{Name: "HTTP 503", Count: 1, ErrorType: "HTTP Error"},
	}, res.Errors)
}

func TestFormat_NoSuccesses(t *testing.T) {
	res := Format("", 1, stats.Summary{Total: 3, Fail: 3, Wall: time.Second, RequestsPerSecond: 3})

	assert.Zero(t, res.AverageResponseMs)
	assert.Zero(t, res.MinMs)
	assert.Zero(t, res.P99Ms)
	assert.Equal(t, 3.0, res.RequestsPerSecond)
	assert.Nil(t, res.StatusCodes)
	assert.Empty(t, res.Errors)
}

func TestWriteJSON_FieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Format("run-1", 4, sampleSummary())))

	var m map[string]any
	require.NoError(t, stdjson.Unmarshal(buf.Bytes(), &m))

	for _, key := range []string{
		"total_requests", "successful_requests", "failed_requests",
		"total_duration_ms", "average_response_ms", "requests_per_second",
		"min_ms", "max_ms", "p95_ms", "p99_ms",
	} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, "run-1", m["run_id"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Format("run-1", 4, sampleSummary())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "run-1", records[1][0])
	assert.Equal(t, "10", records[1][1])
	assert.Equal(t, "12.50", records[1][5])
}

func TestSaveFiles(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "report")
	require.NoError(t, SaveFiles(prefix, Format("run-1", 4, sampleSummary())))

	assert.FileExists(t, prefix+".json")
	assert.FileExists(t, prefix+".csv")

	data, err := os.ReadFile(prefix + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"p99_ms": 40`)
}

func TestSaveFiles_BadDirectory(t *testing.T) {
	err := SaveFiles(filepath.Join(t.TempDir(), "missing", "report"), Result{})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	out := Render(Format("run-1", 4, sampleSummary()))

	assert.Contains(t, out, "LOAD TEST RESULTS")
	assert.Contains(t, out, "P95 : 40.00 ms")
	assert.Contains(t, out, "HTTP 503")
	assert.Contains(t, out, "run run-1")

	empty := Render(Format("", 1, stats.Summary{Total: 2, Fail: 2}))
	assert.Contains(t, empty, "no successful requests")
}
