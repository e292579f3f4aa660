package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"wavebench/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve load tests over HTTP (GET/POST /api/loadtest, /metrics)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		if !log.Core().Enabled(zapcore.DebugLevel) {
			gin.SetMode(gin.ReleaseMode)
		}

		s := server.New(server.Config{
			Listen:            viper.GetString("server.listen"),
			DefaultTarget:     viper.GetString("server.target"),
			MaxRequests:       viper.GetInt("server.max_requests"),
			MaxConcurrentRuns: viper.GetInt64("server.max_concurrent_runs"),
			CORS:              viper.GetBool("server.cors"),
			Gzip:              viper.GetBool("server.gzip"),
			Pprof:             viper.GetBool("server.pprof"),
		}, log)

		return s.ListenAndServe(cmd.Context())
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", ":8000", "listen address")
	f.String("target", "", "default load test target (default is this server's /api)")
	f.Int("max-requests", 100_000, "max total_requests per load test, 0 disables")
	f.Int64("max-concurrent-runs", 1, "load tests allowed to run at once")
	f.Bool("cors", true, "allow cross-origin requests from any origin")
	f.Bool("gzip", false, "gzip compress responses")
	f.Bool("pprof", false, "serve /debug/pprof")

	viper.BindPFlag("server.listen", f.Lookup("listen"))
	viper.BindPFlag("server.target", f.Lookup("target"))
	viper.BindPFlag("server.max_requests", f.Lookup("max-requests"))
	viper.BindPFlag("server.max_concurrent_runs", f.Lookup("max-concurrent-runs"))
	viper.BindPFlag("server.cors", f.Lookup("cors"))
	viper.BindPFlag("server.gzip", f.Lookup("gzip"))
	viper.BindPFlag("server.pprof", f.Lookup("pprof"))
}
