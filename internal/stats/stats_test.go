package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timeout = Failure{Type: "Transport Error", Name: "timeout"}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func TestRecorder_ConcurrentWriters(t *testing.T) {
	r := NewRecorder(0)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				r.Record(Observation{Elapsed: ms(5), Failure: timeout})
				return
			}
			r.Record(Observation{Elapsed: ms(i), Status: 200, Success: true})
		}(i)
	}
	wg.Wait()

	s := r.Snapshot()
	assert.Equal(t, uint64(200), s.Total())
	assert.Equal(t, uint64(150), s.Success)
	assert.Equal(t, uint64(50), s.Fail)
	assert.Len(t, s.Latencies, 150)
	assert.Equal(t, uint64(50), s.Reasons[timeout])
	assert.Equal(t, uint64(150), s.Statuses[200])
	assert.Equal(t, uint64(200), r.Requests())
	assert.Equal(t, int64(150), r.Live().TotalCount())
	assert.InDelta(t, 25.0, r.ErrorRate(), 0.001)
}

func TestRecorder_SnapshotIsACopy(t *testing.T) {
	r := NewRecorder(4)
	r.Record(Observation{Elapsed: ms(1), Success: true, Status: 204})

	s := r.Snapshot()
	r.Record(Observation{Elapsed: ms(2), Success: true, Status: 204})

	assert.Len(t, s.Latencies, 1)
	assert.Equal(t, uint64(1), s.Statuses[204])
	assert.Equal(t, uint64(1), s.Success)
}

func TestPercentile_NearestRank(t *testing.T) {
	sorted := make([]time.Duration, 0, 100)
	for v := 10; v <= 1000; v += 10 {
		sorted = append(sorted, ms(v))
	}
	require.Len(t, sorted, 100)

	// rank = ceil(p/100 * 100): p95 -> 95th value (950), p99 -> 99th (990)
	assert.Equal(t, ms(950), Percentile(sorted, 95))
	assert.Equal(t, ms(990), Percentile(sorted, 99))
	assert.Equal(t, ms(500), Percentile(sorted, 50))
	assert.Equal(t, ms(10), Percentile(sorted, 0))
	assert.Equal(t, ms(1000), Percentile(sorted, 100))
}

func TestPercentile_SmallSets(t *testing.T) {
	tests := []struct {
		name   string
		values []time.Duration
		p      float64
		want   time.Duration
	}{
		{"empty", nil, 95, 0},
		{"single", []time.Duration{ms(7)}, 99, ms(7)},
		{"three p50", []time.Duration{ms(1), ms(2), ms(3)}, 50, ms(2)},
		{"three p95", []time.Duration{ms(1), ms(2), ms(3)}, 95, ms(3)},
		{"ten p95", []time.Duration{ms(1), ms(2), ms(3), ms(4), ms(5), ms(6), ms(7), ms(8), ms(9), ms(10)}, 95, ms(10)},
		{"ten p90", []time.Duration{ms(1), ms(2), ms(3), ms(4), ms(5), ms(6), ms(7), ms(8), ms(9), ms(10)}, 90, ms(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentile(tt.values, tt.p))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Samples{
		Latencies: []time.Duration{ms(30), ms(10), ms(20)},
		Success:   3,
		Fail:      1,
		Reasons:   map[Failure]uint64{{Type: "Transport Error", Name: "connection refused"}: 1},
	}

	sum := Summarize(s, 2*time.Second)

	assert.Equal(t, uint64(4), sum.Total)
	assert.Equal(t, ms(20), sum.Mean)
	assert.Equal(t, ms(10), sum.Min)
	assert.Equal(t, ms(30), sum.Max)
	assert.Equal(t, ms(30), sum.P99)
	assert.InDelta(t, 2.0, sum.RequestsPerSecond, 0.0001)
	assert.LessOrEqual(t, sum.Min, sum.Mean)
	assert.LessOrEqual(t, sum.Mean, sum.Max)

	// input must stay unsorted
	assert.Equal(t, ms(30), s.Latencies[0])
}

func TestSummarize_NoSuccesses(t *testing.T) {
	s := Samples{Fail: 5, Reasons: map[Failure]uint64{timeout: 5}}

	sum := Summarize(s, 500*time.Millisecond)

	assert.Equal(t, uint64(5), sum.Total)
	assert.Equal(t, uint64(5), sum.Fail)
	assert.Zero(t, sum.Mean)
	assert.Zero(t, sum.Min)
	assert.Zero(t, sum.Max)
	assert.Zero(t, sum.P95)
	assert.Zero(t, sum.P99)
	assert.InDelta(t, 10.0, sum.RequestsPerSecond, 0.0001)
}

func TestSummarize_ZeroWall(t *testing.T) {
	sum := Summarize(Samples{Success: 1, Latencies: []time.Duration{ms(1)}}, 0)
	assert.Zero(t, sum.RequestsPerSecond)
}

func TestSafeHistogram(t *testing.T) {
	h := NewSafeHistogram()
	assert.Zero(t, h.Max())

	h.Observe(0)
	h.Observe(ms(3))
	h.Observe(time.Hour) // above the trackable range, clamped

	assert.Equal(t, int64(3), h.TotalCount())
	assert.GreaterOrEqual(t, h.Max(), 9*time.Minute)
	assert.InDelta(t, float64(ms(3)), float64(h.Quantile(50)), float64(ms(1)))
}
