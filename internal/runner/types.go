package runner

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"wavebench/internal/stats"
)

const (
	DefaultTimeout = 10 * time.Second

	MaxTotalRequests = 1_000_000
	MaxConcurrency   = 10_000
)

// Mode selects how the scheduler bounds in-flight requests.
type Mode string

const (
	// ModeWave dispatches chunks of Concurrency requests and waits for
	// each chunk to finish before starting the next.
	ModeWave Mode = "wave"
	// ModePipeline keeps up to Concurrency requests in flight and starts
	// the next one as soon as any finishes.
	ModePipeline Mode = "pipeline"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeWave:
		return ModeWave, nil
	case ModePipeline:
		return ModePipeline, nil
	}
	return "", fmt.Errorf("unknown mode %q (want wave or pipeline)", s)
}

// Policy decides which HTTP responses count as successful requests.
// Transport failures are always failures.
type Policy string

const (
	PolicyAnyResponse   Policy = "any"       // any response, even 5xx
	PolicyNoServerError Policy = "no-5xx"    // status < 500
	PolicyNoError       Policy = "no-errors" // status < 400
	PolicyOnly2xx       Policy = "2xx"       // 200-299
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAnyResponse, nil
	case PolicyAnyResponse, PolicyNoServerError, PolicyNoError, PolicyOnly2xx:
		return p, nil
	}
	return "", fmt.Errorf("unknown policy %q (want any, no-5xx, no-errors or 2xx)", s)
}

// Accepts reports whether status counts as a success under p.
func (p Policy) Accepts(status int) bool {
	switch p {
	case PolicyNoServerError:
		return status < 500
	case PolicyNoError:
		return status < 400
	case PolicyOnly2xx:
		return status >= 200 && status < 300
	}
	return true
}

// Config describes one load test invocation.
type Config struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`

	TotalRequests int `json:"total_requests"`
	Concurrency   int `json:"concurrency"`

	Mode    Mode          `json:"mode"`
	Policy  Policy        `json:"policy"`
	Rate    float64       `json:"rate,omitempty"` // requests/sec cap, 0 = unlimited
	Timeout time.Duration `json:"timeout"`

	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
}

// ValidationError reports a Config that cannot be run. No request is
// issued for an invalid Config.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// withDefaults fills in the optional fields.
func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = http.MethodGet
	}
	c.Method = strings.ToUpper(c.Method)
	if m, err := ParseMode(string(c.Mode)); err == nil {
		c.Mode = m
	}
	if p, err := ParsePolicy(string(c.Policy)); err == nil {
		c.Policy = p
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the static constraints of c. The target URL is
// checked again after template rendering by NewRunner.
func (c *Config) Validate() error {
	if c.TotalRequests <= 0 {
		return invalid("total_requests", "must be greater than 0")
	}
	if c.TotalRequests > MaxTotalRequests {
		return invalid("total_requests", "cannot exceed %d", MaxTotalRequests)
	}
	if c.Concurrency <= 0 {
		return invalid("concurrency", "must be greater than 0")
	}
	if c.Concurrency > MaxConcurrency {
		return invalid("concurrency", "cannot exceed %d", MaxConcurrency)
	}
	if strings.TrimSpace(c.URL) == "" {
		return invalid("target", "is required")
	}
	if c.Method != "" && strings.ContainsAny(c.Method, " \t\r\n") {
		return invalid("method", "%q is not a valid HTTP method", c.Method)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return invalid("mode", "%v", err)
	}
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return invalid("policy", "%v", err)
	}
	if c.Rate < 0 {
		return invalid("rate", "cannot be negative")
	}
	if c.Timeout < 0 {
		return invalid("timeout", "cannot be negative")
	}
	return nil
}

// ErrorKind classifies a failed request. KindNone marks a success.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTimeout
	KindConnRefused
	KindDNS
	KindTLS
	KindCanceled
	KindTransport
	KindRequest
	KindStatus
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindConnRefused:
		return "connection refused"
	case KindDNS:
		return "dns failure"
	case KindTLS:
		return "tls failure"
	case KindCanceled:
		return "canceled"
	case KindTransport:
		return "transport failure"
	case KindRequest:
		return "invalid request"
	case KindStatus:
		return "http status"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Outcome is the classified result of one dispatched request.
type Outcome struct {
	Seq     int
	Elapsed time.Duration
	Status  int // 0 when no response arrived
	Kind    ErrorKind
	Err     error
}

func (o Outcome) Success() bool { return o.Kind == KindNone }

// Failure names the failure the way the report groups it.
func (o Outcome) Failure() stats.Failure {
	switch o.Kind {
	case KindNone:
		return stats.Failure{}
	case KindStatus:
		return stats.Failure{Type: "HTTP Error", Name: fmt.Sprintf("HTTP %d", o.Status)}
	case KindCanceled:
		return stats.Failure{Type: "Canceled", Name: o.Kind.String()}
	case KindRequest:
		return stats.Failure{Type: "Request Error", Name: o.Kind.String()}
	}
	return stats.Failure{Type: "Transport Error", Name: o.Kind.String()}
}

// StatsSnapshot is a point-in-time view of a running test.
type StatsSnapshot struct {
	Requests  uint64
	Success   uint64
	Fail      uint64
	ErrorRate float64 // percent of completed requests
	Total     int
	Inflight  int64

	Wave  int // 1-based index of the current wave
	Waves int

	P50ServiceMs float64
	P99ServiceMs float64
	MaxServiceMs float64
}
