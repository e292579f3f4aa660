package stats

import (
	"math"
	"slices"
	"time"
)

// Summary is the reduced form of a finalized sample set.
type Summary struct {
	Total   uint64
	Success uint64
	Fail    uint64

	Wall              time.Duration
	RequestsPerSecond float64

	// Latency statistics over successful requests. All zero when
	// there were no successes.
	Mean time.Duration
	Min  time.Duration
	Max  time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration

	Reasons  map[Failure]uint64
	Statuses map[int]uint64
}

// Summarize reduces s into a Summary. wall is the elapsed time of the
// whole run and only feeds the throughput figure.
func Summarize(s Samples, wall time.Duration) Summary {
	sum := Summary{
		Total:    s.Total(),
		Success:  s.Success,
		Fail:     s.Fail,
		Wall:     wall,
		Reasons:  s.Reasons,
		Statuses: s.Statuses,
	}
	if wall > 0 {
		sum.RequestsPerSecond = float64(sum.Total) / wall.Seconds()
	}

	n := len(s.Latencies)
	if n == 0 {
		return sum
	}

	sorted := slices.Clone(s.Latencies)
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	sum.Mean = total / time.Duration(n)
	sum.Min = sorted[0]
	sum.Max = sorted[n-1]
	sum.P50 = Percentile(sorted, 50)
	sum.P95 = Percentile(sorted, 95)
	sum.P99 = Percentile(sorted, 99)
	return sum
}

// Percentile returns the nearest-rank p-th percentile (0-100) of an
// ascending slice: index ceil(p/100*n)-1, clamped to the slice.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	i := int(math.Ceil(p*float64(n)/100)) - 1
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	return sorted[i]
}
