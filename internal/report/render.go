package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"wavebench/internal/styles"
)

// Render formats res as the terminal summary printed after a run.
func Render(res Result) string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("📊 LOAD TEST RESULTS"))
	s.WriteString("\n\n")

	errRate := 0.0
	if res.TotalRequests > 0 {
		errRate = float64(res.FailedRequests) / float64(res.TotalRequests) * 100
	}

	overview := fmt.Sprintf(
		"Total Requests : %d\nSuccess        : %d\nFailures       : %s\nDuration       : %d ms\nWaves          : %d\nActual RPS     : %.2f",
		res.TotalRequests,
		res.SuccessfulRequests,
		styles.ErrorRateStyle(errRate).Render(fmt.Sprintf("%d (%.2f%%)", res.FailedRequests, errRate)),
		res.TotalDurationMs,
		res.Waves,
		res.RequestsPerSecond,
	)

	latency := styles.Subtle.Render("no successful requests")
	if res.SuccessfulRequests > 0 {
		latency = fmt.Sprintf(
			"Avg : %.2f ms\nMin : %.2f ms\nP50 : %.2f ms\nP95 : %.2f ms\nP99 : %.2f ms\nMax : %.2f ms",
			res.AverageResponseMs, res.MinMs, res.P50Ms, res.P95Ms, res.P99Ms, res.MaxMs,
		)
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(styles.Active.Render("Overview")+"\n"+overview),
		styles.Box.Render(styles.Active.Render("Response Times [Success Only]")+"\n"+latency),
	))
	s.WriteString("\n")

	if len(res.Errors) > 0 {
		var b strings.Builder
		b.WriteString(styles.Error.Render("❌ FAILURE SUMMARY"))
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "\n%6d x %s (%s)", e.Count, e.Name, e.ErrorType)
		}
		s.WriteString(styles.Box.Render(b.String()))
		s.WriteString("\n")
	}

	if res.RunID != "" {
		s.WriteString(styles.Subtle.Render("run " + res.RunID))
		s.WriteString("\n")
	}

	return s.String()
}
