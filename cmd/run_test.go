package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavebench/internal/runner"
)

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"Content-Type: application/json", "X-Token:abc:def"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Content-Type": "application/json",
		"X-Token":      "abc:def",
	}, h)

	_, err = parseHeaders([]string{"no-colon"})
	var vErr *runner.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "header", vErr.Field)
}

func TestRunConfig_FromViper(t *testing.T) {
	v := viper.New()
	v.Set("run.url", "http://svc/x")
	v.Set("run.requests", 50)
	v.Set("run.concurrency", 5)
	v.Set("run.mode", "pipeline")
	v.Set("run.policy", "2xx")
	v.Set("run.rate", 12.5)
	v.Set("run.timeout", "3s")
	v.Set("run.header", []string{"A: 1"})

	cfg, err := runConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "http://svc/x", cfg.URL)
	assert.Equal(t, 50, cfg.TotalRequests)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, runner.ModePipeline, cfg.Mode)
	assert.Equal(t, runner.PolicyOnly2xx, cfg.Policy)
	assert.Equal(t, 12.5, cfg.Rate)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, map[string]string{"A": "1"}, cfg.Headers)
}

func TestRunCommand_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "-u", srv.URL, "-n", "6", "-c", "2", "--json", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	var m map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &m))
	assert.Equal(t, 6.0, m["total_requests"])
	assert.Equal(t, 6.0, m["successful_requests"])
	assert.Equal(t, 3.0, m["waves"])
}
