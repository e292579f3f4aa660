package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavebench/internal/runner"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStart_HumanReport(t *testing.T) {
	srv := testServer(t)
	var out bytes.Buffer

	res, err := Start(context.Background(), runner.Config{
		URL: srv.URL, TotalRequests: 8, Concurrency: 3,
	}, Options{Interval: time.Millisecond}, &out)
	require.NoError(t, err)

	assert.Equal(t, uint64(8), res.SuccessfulRequests)
	text := out.String()
	assert.Contains(t, text, "STARTING LOAD TEST")
	assert.Contains(t, text, "8/8")
	assert.Contains(t, text, "0 (0.0%)")
	assert.Contains(t, text, "LOAD TEST RESULTS")
}

func TestStart_Quiet(t *testing.T) {
	srv := testServer(t)
	var out bytes.Buffer

	_, err := Start(context.Background(), runner.Config{
		URL: srv.URL, TotalRequests: 3, Concurrency: 3,
	}, Options{Quiet: true, Interval: time.Millisecond}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.NotContains(t, text, "STARTING LOAD TEST")
	assert.NotContains(t, text, "Wave ")
	assert.Contains(t, text, "LOAD TEST RESULTS")
}

func TestStart_JSON(t *testing.T) {
	srv := testServer(t)
	var out bytes.Buffer
	prefix := filepath.Join(t.TempDir(), "run")

	_, err := Start(context.Background(), runner.Config{
		URL: srv.URL, TotalRequests: 4, Concurrency: 4,
	}, Options{JSON: true, OutPrefix: prefix}, &out)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &m))
	assert.Equal(t, 4.0, m["total_requests"])
	assert.Equal(t, 4.0, m["successful_requests"])
	assert.FileExists(t, prefix+".json")
	assert.FileExists(t, prefix+".csv")
}

func TestStart_InvalidConfig(t *testing.T) {
	var out bytes.Buffer
	_, err := Start(context.Background(), runner.Config{URL: "http://svc"}, Options{}, &out)

	var vErr *runner.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, out.String())
}
