package cmd

import (
	"github.com/spf13/cobra"

	"wavebench/internal/dummy"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a local target server (/fast, /medium, /slow, /spike, /error, /status/{code})",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		port, _ := cmd.Flags().GetInt("port")
		return dummy.Serve(cmd.Context(), dummy.ServerConfig{Port: port}, log)
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "port to run the dummy server on")
}
