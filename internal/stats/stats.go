package stats

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Observation is one classified request as seen by the Recorder.
type Observation struct {
	Elapsed time.Duration
	Status  int // 0 when no response arrived
	Success bool
	Failure Failure // zero on success
}

// Failure identifies why a request failed, e.g. {"HTTP Error", "HTTP 503"}.
type Failure struct {
	Type string
	Name string
}

// Recorder accumulates observations from concurrent writers.
//
// Counters are atomics so progress readers never block writers. Latency
// samples and the failure/status maps are appended under mu; the
// appends commute, so no ordering between writers is required.
type Recorder struct {
	requests atomic.Uint64
	success  atomic.Uint64
	fail     atomic.Uint64

	mu        sync.Mutex
	latencies []time.Duration
	reasons   map[Failure]uint64
	statuses  map[int]uint64

	// Live view for progress reporting; the exact samples above are
	// what the final report is computed from.
	live *SafeHistogram
}

// NewRecorder returns an empty Recorder sized for capacity samples.
func NewRecorder(capacity int) *Recorder {
	if capacity < 0 {
		capacity = 0
	}
	return &Recorder{
		latencies: make([]time.Duration, 0, capacity),
		reasons:   make(map[Failure]uint64),
		statuses:  make(map[int]uint64),
		live:      NewSafeHistogram(),
	}
}

func (r *Recorder) Record(o Observation) {
	r.mu.Lock()
	if o.Success {
		r.latencies = append(r.latencies, o.Elapsed)
	} else {
		r.reasons[o.Failure]++
	}
	if o.Status != 0 {
		r.statuses[o.Status]++
	}
	r.mu.Unlock()

	if o.Success {
		r.live.Observe(o.Elapsed)
		r.success.Add(1)
	} else {
		r.fail.Add(1)
	}
	r.requests.Add(1)
}

func (r *Recorder) Requests() uint64 { return r.requests.Load() }
func (r *Recorder) Success() uint64  { return r.success.Load() }
func (r *Recorder) Fail() uint64     { return r.fail.Load() }

// Live returns the histogram of successful latencies recorded so far.
func (r *Recorder) Live() *SafeHistogram { return r.live }

// ErrorRate returns the failure percentage of recorded requests.
func (r *Recorder) ErrorRate() float64 {
	reqs := r.requests.Load()
	if reqs == 0 {
		return 0
	}
	return float64(r.fail.Load()) / float64(reqs) * 100
}


// Samples is a finalized, read-only copy of a Recorder.
type Samples struct {
	Latencies []time.Duration // successful requests only, unordered
	Success   uint64
	Fail      uint64
	Reasons   map[Failure]uint64
	Statuses  map[int]uint64
}

func (s Samples) Total() uint64 { return s.Success + s.Fail }

// Snapshot copies the recorder state. Call it after every writer has
// returned to get the final sample set of a run.
func (r *Recorder) Snapshot() Samples {
	r.mu.Lock()
	defer r.mu.Unlock()

	lat := make([]time.Duration, len(r.latencies))
	copy(lat, r.latencies)

	return Samples{
		Latencies: lat,
		Success:   r.success.Load(),
		Fail:      r.fail.Load(),
		Reasons:   maps.Clone(r.reasons),
		Statuses:  maps.Clone(r.statuses),
	}
}
