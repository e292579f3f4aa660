package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"wavebench/internal/banner"
	"wavebench/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wavebench",
	Short: "wavebench - wave based HTTP load testing",
	Long: `
wavebench fires a fixed number of HTTP requests at a target in waves of
bounded concurrency and reports throughput and latency percentiles.

Commands:
  run    Run one load test from the command line
  serve  Expose load tests over an HTTP API
  dummy  Start a local target with known latency shapes`,
	SilenceUsage: true,
}

// Execute runs the root command; it exits 1 on error.
func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wavebench.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", logging.FormatConsole, "log format (json, console)")

	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))

	rootCmd.AddCommand(runCmd, serveCmd, dummyCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wavebench")
	}

	viper.SetEnvPrefix("wavebench")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "config:", err)
	}
}

func newLogger() (*zap.Logger, error) {
	return logging.New(viper.GetString("log.level"), viper.GetString("log.format"))
}
