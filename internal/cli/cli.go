// Package cli runs a load test in the foreground and prints its report.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"wavebench/internal/report"
	"wavebench/internal/runner"
	"wavebench/internal/styles"
)

const defaultInterval = 200 * time.Millisecond

type Options struct {
	// JSON prints the report as JSON and suppresses the progress line.
	JSON bool
	// OutPrefix, if set, also writes <prefix>.json and <prefix>.csv.
	OutPrefix string
	// Quiet suppresses the header and progress line.
	Quiet    bool
	Interval time.Duration
}

// Start validates cfg, runs it and writes the report to out. Progress
// is drawn on out while the run is active.
func Start(ctx context.Context, cfg runner.Config, opts Options, out io.Writer, runOpts ...runner.Option) (report.Result, error) {
	r, err := runner.NewRunner(cfg, runOpts...)
	if err != nil {
		return report.Result{}, err
	}

	interactive := !opts.JSON && !opts.Quiet
	if interactive {
		printHeader(out, r.Cfg)
	}

	type result struct {
		res report.Result
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := r.Run(ctx)
		done <- result{res, err}
	}()

	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	startTime := time.Now()

	var res result
loop:
	for {
		select {
		case res = <-done:
			break loop
		case <-ticker.C:
			if interactive {
				printProgress(out, bar, r.Snapshot(), time.Since(startTime))
			}
		}
	}
	if res.err != nil {
		return report.Result{}, res.err
	}

	if interactive {
		printProgress(out, bar, r.Snapshot(), time.Since(startTime))
		fmt.Fprint(out, "\n\n")
	}

	if opts.JSON {
		if err := report.WriteJSON(out, res.res); err != nil {
			return res.res, err
		}
	} else {
		fmt.Fprint(out, report.Render(res.res))
	}

	if opts.OutPrefix != "" {
		if err := report.SaveFiles(opts.OutPrefix, res.res); err != nil {
			return res.res, err
		}
		if !opts.JSON {
			fmt.Fprintf(out, "💾 Reports saved to %s.{json,csv}\n", opts.OutPrefix)
		}
	}
	return res.res, nil
}

func printHeader(out io.Writer, cfg runner.Config) {
	rule := styles.Subtle.Render("======================================================================")

	fmt.Fprintf(out, "\n%s\n%s\n", styles.Title.Render("🚀 STARTING LOAD TEST"), rule)
	fmt.Fprintf(out, "Target URL  : %s\n", cfg.URL)
	fmt.Fprintf(out, "Method      : %s\n", cfg.Method)
	fmt.Fprintf(out, "Requests    : %d\n", cfg.TotalRequests)
	fmt.Fprintf(out, "Concurrency : %d (%s)\n", cfg.Concurrency, cfg.Mode)
	fmt.Fprintf(out, "Policy      : %s\n", cfg.Policy)
	if cfg.Rate > 0 {
		fmt.Fprintf(out, "Rate cap    : %.1f req/s\n", cfg.Rate)
	}
	fmt.Fprintf(out, "Timeout     : %s\n", cfg.Timeout)
	fmt.Fprintf(out, "%s\n\n", rule)
}

func printProgress(out io.Writer, bar progress.Model, s runner.StatsSnapshot, elapsed time.Duration) {
	pct := 0.0
	if s.Total > 0 {
		pct = min(float64(s.Requests)/float64(s.Total), 1)
	}
	rps := 0.0
	if elapsed > 0 {
		rps = float64(s.Requests) / elapsed.Seconds()
	}

	fmt.Fprintf(out, "\r%s | %d/%d | Wave %d/%d | Inf: %3d | RPS: %.1f | OK: %d | Err: %s | p99 %.1fms   ",
		bar.ViewAs(pct),
		s.Requests, s.Total,
		s.Wave, s.Waves,
		s.Inflight,
		rps,
		s.Success,
		styles.ErrorRateStyle(s.ErrorRate).Render(fmt.Sprintf("%d (%.1f%%)", s.Fail, s.ErrorRate)),
		s.P99ServiceMs,
	)
}
