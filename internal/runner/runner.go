package runner

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wavebench/internal/metrics"
	"wavebench/internal/report"
	"wavebench/internal/stats"
)

// Runner executes load tests for one Config. Each call to Run starts
// from fresh recorder state; Run must not be called concurrently on the
// same Runner.
type Runner struct {
	Cfg Config

	client  Doer
	log     *zap.Logger
	metrics *metrics.Collector

	templates *TemplateEngine
	urlTmpl   *template.Template
	bodyTmpl  *template.Template

	recorder atomic.Pointer[stats.Recorder]
	inflight atomic.Int64
	wave     atomic.Int64
	waves    atomic.Int64
}

type Option func(*Runner)

// WithClient replaces the HTTP client built from the Config.
func WithClient(d Doer) Option {
	return func(r *Runner) { r.client = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.log = l }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// NewRunner validates cfg and prepares a Runner. It returns a
// *ValidationError for unusable input and performs no network I/O.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	r := &Runner{
		Cfg:       cfg,
		log:       zap.NewNop(),
		templates: NewTemplateEngine(),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	if r.urlTmpl, err = r.templates.Parse("url", cfg.URL); err != nil {
		return nil, invalid("target", "bad template: %v", err)
	}
	if r.bodyTmpl, err = r.templates.Parse("body", cfg.Body); err != nil {
		return nil, invalid("body", "bad template: %v", err)
	}
	if err := r.checkTarget(); err != nil {
		return nil, err
	}

	if r.client == nil {
		r.client = newHTTPClient(cfg)
	}
	return r, nil
}

// checkTarget renders the URL for the first request and requires an
// absolute http(s) URL. Template functions that read files are only
// exercised here if the URL uses them.
func (r *Runner) checkTarget() error {
	target, err := r.templates.Render(r.urlTmpl, r.Cfg.URL, TemplateData{RunID: "validate", UUID: uuid.NewString()})
	if err != nil {
		return invalid("target", "%v", err)
	}
	u, err := url.Parse(target)
	if err != nil {
		return invalid("target", "%v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("target", "scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return invalid("target", "missing host in %q", target)
	}
	return nil
}

// Run is the single entry point for a load test: validate cfg, run it
// to completion and return its report.
func Run(ctx context.Context, cfg Config, opts ...Option) (report.Result, error) {
	r, err := NewRunner(cfg, opts...)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			metricsFrom(opts).RunFinished("invalid")
		}
		return report.Result{}, err
	}
	return r.Run(ctx)
}

// Run drives every request of the Config and returns the report. Per
// request faults are part of the report; cancelling ctx fails the
// remaining requests as canceled instead of dropping them.
func (r *Runner) Run(ctx context.Context) (report.Result, error) {
	cfg := r.Cfg
	runID := uuid.NewString()
	rec := stats.NewRecorder(cfg.TotalRequests)
	lim := newLimiter(cfg.Rate)
	log := r.log.With(zap.String("run_id", runID))

	r.recorder.Store(rec)
	r.wave.Store(0)

	sched := Scheduler{
		Total:       cfg.TotalRequests,
		Concurrency: cfg.Concurrency,
		Mode:        cfg.Mode,
		OnWave: func(index, size int) {
			r.wave.Store(int64(index + 1))
			r.metrics.WaveStarted()
			log.Debug("wave started", zap.Int("wave", index+1), zap.Int("size", size))
		},
	}
	waves := 1
	if cfg.Mode == ModeWave {
		waves = len(Waves(cfg.TotalRequests, cfg.Concurrency))
	}
	r.waves.Store(int64(waves))

	log.Info("load test started",
		zap.String("target", cfg.URL),
		zap.String("method", cfg.Method),
		zap.Int("total_requests", cfg.TotalRequests),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("mode", string(cfg.Mode)),
		zap.String("policy", string(cfg.Policy)),
		zap.Int("waves", waves),
	)

	start := time.Now()
	sched.Drive(ctx, func(ctx context.Context, seq int) {
		o := r.execute(ctx, lim, runID, seq)
		r.record(rec, o, log)
	})
	wall := time.Since(start)

	res := report.Format(runID, waves, stats.Summarize(rec.Snapshot(), wall))

	status := "completed"
	if ctx.Err() != nil {
		status = "canceled"
	}
	r.metrics.RunFinished(status)

	log.Info("load test finished",
		zap.String("status", status),
		zap.Uint64("successful_requests", res.SuccessfulRequests),
		zap.Uint64("failed_requests", res.FailedRequests),
		zap.Int64("total_duration_ms", res.TotalDurationMs),
		zap.Float64("requests_per_second", res.RequestsPerSecond),
		zap.Float64("p95_ms", res.P95Ms),
		zap.Float64("p99_ms", res.P99Ms),
	)

	return res, nil
}

func (r *Runner) record(rec *stats.Recorder, o Outcome, log *zap.Logger) {
	obs := stats.Observation{Elapsed: o.Elapsed, Status: o.Status, Success: o.Success()}
	if !obs.Success {
		obs.Failure = o.Failure()
		log.Debug("request failed",
			zap.Int("seq", o.Seq),
			zap.Stringer("kind", o.Kind),
			zap.Int("status", o.Status),
			zap.Duration("elapsed", o.Elapsed),
			zap.Error(o.Err),
		)
	}
	rec.Record(obs)
	r.metrics.ObserveRequest(obs.Success, obs.Failure.Type, o.Elapsed)
}

// Snapshot reports the progress of the current or last run.
func (r *Runner) Snapshot() StatsSnapshot {
	s := StatsSnapshot{
		Total:    r.Cfg.TotalRequests,
		Inflight: r.inflight.Load(),
		Wave:     int(r.wave.Load()),
		Waves:    int(r.waves.Load()),
	}

	rec := r.recorder.Load()
	if rec == nil {
		return s
	}
	s.Requests = rec.Requests()
	s.Success = rec.Success()
	s.Fail = rec.Fail()
	s.ErrorRate = rec.ErrorRate()

	live := rec.Live()
	s.P50ServiceMs = float64(live.Quantile(50)) / float64(time.Millisecond)
	s.P99ServiceMs = float64(live.Quantile(99)) / float64(time.Millisecond)
	s.MaxServiceMs = float64(live.Max()) / float64(time.Millisecond)
	return s
}

func metricsFrom(opts []Option) *metrics.Collector {
	var r Runner
	for _, opt := range opts {
		opt(&r)
	}
	return r.metrics
}
