// Package report turns an aggregated load test into its external shape.
package report

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"wavebench/internal/stats"
)

// ErrorDetail groups failed requests that share a cause.
type ErrorDetail struct {
	Name      string `json:"name"`
	Count     uint64 `json:"count"`
	ErrorType string `json:"error_type"`
}

// Result is the report of one load test. The first ten fields are the
// stable contract; the rest are extra detail.
type Result struct {
	TotalRequests      uint64  `json:"total_requests"`
	SuccessfulRequests uint64  `json:"successful_requests"`
	FailedRequests     uint64  `json:"failed_requests"`
	TotalDurationMs    int64   `json:"total_duration_ms"`
	AverageResponseMs  float64 `json:"average_response_ms"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
	MinMs              float64 `json:"min_ms"`
	MaxMs              float64 `json:"max_ms"`
	P95Ms              float64 `json:"p95_ms"`
	P99Ms              float64 `json:"p99_ms"`

	RunID       string            `json:"run_id,omitempty"`
	P50Ms       float64           `json:"p50_ms"`
	Waves       int               `json:"waves"`
	StatusCodes map[string]uint64 `json:"status_codes,omitempty"`
	Errors      []ErrorDetail     `json:"errors,omitempty"`
}

// Format builds the Result for an aggregated run.
func Format(runID string, waves int, s stats.Summary) Result {
	res := Result{
		TotalRequests:      s.Total,
		SuccessfulRequests: s.Success,
		FailedRequests:     s.Fail,
		TotalDurationMs:    s.Wall.Milliseconds(),
		AverageResponseMs:  toMs(s.Mean),
		RequestsPerSecond:  s.RequestsPerSecond,
		MinMs:              toMs(s.Min),
		MaxMs:              toMs(s.Max),
		P95Ms:              toMs(s.P95),
		P99Ms:              toMs(s.P99),
		RunID:              runID,
		P50Ms:              toMs(s.P50),
		Waves:              waves,
	}

	if len(s.Statuses) > 0 {
		res.StatusCodes = make(map[string]uint64, len(s.Statuses))
		for code, n := range s.Statuses {
			res.StatusCodes[strconv.Itoa(code)] = n
		}
	}

	for f, n := range s.Reasons {
		res.Errors = append(res.Errors, ErrorDetail{Name: f.Name, Count: n, ErrorType: f.Type})
	}
	slices.SortFunc(res.Errors, func(a, b ErrorDetail) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	return res
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
