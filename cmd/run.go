package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wavebench/internal/cli"
	"wavebench/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one load test and print its report",
	Example: `  wavebench run -u http://localhost:8080/fast -n 1000 -c 50
  wavebench run -u 'http://localhost:8080/users/{{seq}}' -n 200 -c 20 --policy 2xx --json`,
	RunE: runLoadTest,
}

func init() {
	f := runCmd.Flags()
	f.StringP("url", "u", "", "target URL, may use {{seq}}, {{uuid}}, {{runID}} and template functions")
	f.IntP("requests", "n", 100, "total number of requests")
	f.IntP("concurrency", "c", 10, "requests per wave")
	f.StringP("method", "X", "GET", "HTTP method")
	f.StringSliceP("header", "H", nil, `HTTP header (e.g. "Key: Value"), repeatable`)
	f.StringP("body", "b", "", "request body template")
	f.String("mode", string(runner.ModeWave), "scheduling mode (wave, pipeline)")
	f.String("policy", string(runner.PolicyAnyResponse), "success policy (any, no-5xx, no-errors, 2xx)")
	f.Float64("rate", 0, "dispatch rate cap in requests/sec, 0 disables")
	f.Duration("timeout", runner.DefaultTimeout, "per request timeout")
	f.Bool("insecure", false, "skip TLS certificate verification")
	f.StringP("out", "o", "", "write <out>.json and <out>.csv reports")
	f.Bool("json", false, "print the report as JSON")
	f.BoolP("quiet", "q", false, "print only the final report")

	for _, name := range []string{"url", "requests", "concurrency", "method", "header", "body", "mode", "policy", "rate", "timeout", "insecure", "out", "json", "quiet"} {
		viper.BindPFlag("run."+name, f.Lookup(name))
	}
}

// parseHeaders accepts "Key: Value" pairs.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, &runner.ValidationError{Field: "header", Reason: fmt.Sprintf("%q is not in Key: Value form", h)}
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers, nil
}

func runConfig(v *viper.Viper) (runner.Config, error) {
	headers, err := parseHeaders(v.GetStringSlice("run.header"))
	if err != nil {
		return runner.Config{}, err
	}

	return runner.Config{
		URL:                v.GetString("run.url"),
		Method:             v.GetString("run.method"),
		Headers:            headers,
		Body:               v.GetString("run.body"),
		TotalRequests:      v.GetInt("run.requests"),
		Concurrency:        v.GetInt("run.concurrency"),
		Mode:               runner.Mode(v.GetString("run.mode")),
		Policy:             runner.Policy(v.GetString("run.policy")),
		Rate:               v.GetFloat64("run.rate"),
		Timeout:            v.GetDuration("run.timeout"),
		InsecureSkipVerify: v.GetBool("run.insecure"),
	}, nil
}

func runLoadTest(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := runConfig(viper.GetViper())
	if err != nil {
		return err
	}

	opts := cli.Options{
		JSON:      viper.GetBool("run.json"),
		OutPrefix: viper.GetString("run.out"),
		Quiet:     viper.GetBool("run.quiet"),
	}

	_, err = cli.Start(cmd.Context(), cfg, opts, cmd.OutOrStdout(), runner.WithLogger(log))
	return err
}
