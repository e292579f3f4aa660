package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var csvHeader = []string{
	"run_id", "total_requests", "successful_requests", "failed_requests",
	"total_duration_ms", "average_response_ms", "requests_per_second",
	"min_ms", "max_ms", "p50_ms", "p95_ms", "p99_ms", "waves",
}

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, res Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteCSV writes a header line and one summary row.
func WriteCSV(w io.Writer, res Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	row := []string{
		res.RunID,
		u(res.TotalRequests),
		u(res.SuccessfulRequests),
		u(res.FailedRequests),
		strconv.FormatInt(res.TotalDurationMs, 10),
		f(res.AverageResponseMs),
		f(res.RequestsPerSecond),
		f(res.MinMs),
		f(res.MaxMs),
		f(res.P50Ms),
		f(res.P95Ms),
		f(res.P99Ms),
		strconv.Itoa(res.Waves),
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// SaveFiles writes <prefix>.json and <prefix>.csv.
func SaveFiles(prefix string, res Result) error {
	if err := writeFile(prefix+".json", res, WriteJSON); err != nil {
		return err
	}
	return writeFile(prefix+".csv", res, WriteCSV)
}

func writeFile(name string, res Result, write func(io.Writer, Result) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := write(f, res); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}
