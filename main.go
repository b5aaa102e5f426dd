// main.go
package main

import (
	"fmt"
	"os"

	"github.com/ariebrainware/physio-pain-assessment/config"
	"github.com/ariebrainware/physio-pain-assessment/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "physio",
	Short: "Physio pain assessment backend",
	Long: `Serves the pain assessment API: body region and movement test catalogs,
the assessment session workflow and AI-assisted analysis.

Run "physio serve" to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logDir := ""
		if cmd.Name() == serveCmd.Name() {
			logDir = cfg.LogDir
		}
		var err error
		logger, err = logging.Init(logging.Options{Dir: logDir, Debug: verbose || cfg.GinMode == "debug"})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, catalogCmd, historyCmd, geoipCmd, rateLimitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
