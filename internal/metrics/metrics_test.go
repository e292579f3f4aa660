package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveRequest(true, "", 20*time.Millisecond)
	c.ObserveRequest(true, "", 40*time.Millisecond)
	c.ObserveRequest(false, "Transport Error", time.Second)
	c.WaveStarted()
	c.InflightAdd(1)
	c.InflightAdd(-1)
	c.RunFinished("completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("Transport Error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.waves))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("completed")))

	n, err := testutil.GatherAndCount(reg, "wavebench_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveRequest(true, "", time.Millisecond)
		c.InflightAdd(1)
		c.WaveStarted()
		c.RunFinished("invalid")
	})
}
