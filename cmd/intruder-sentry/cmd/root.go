package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/intruder-sentry/internal/config"
	"github.com/oshokin/intruder-sentry/internal/service/monitor"
	"github.com/oshokin/intruder-sentry/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// debug raises the log level to debug.
	debug bool

	// rootCmd represents the base command running the presence monitor.
	rootCmd = &cobra.Command{
		Use:   "intruder-sentry",
		Short: "Watch a range sensor and post webhook alerts on presence.",
		Long: `Single-sensor presence monitor for edge devices such as a Raspberry Pi.

Polls an ultrasonic range sensor, and when something crosses the configured
distance threshold it captures a photo (when a camera tool is available) and
posts an alert to a Discord-compatible webhook. A cooldown window suppresses
duplicate alerts while the same presence persists.

Settings come from a YAML file plus environment overrides
(INTRUDER_THRESHOLD_CM, INTRUDER_SAMPLE_S, INTRUDER_COOLDOWN, SEND_PHOTO,
WEBHOOK_URL). The process takes no arguments and runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &monitor.Options{
				ConfigPath: configPath,
				Debug:      debug,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the intruder-sentry CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	// Hidden debug flag for verbose logs during wiring sessions.
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	err := rootCmd.Flags().MarkHidden("debug")
	if err != nil {
		panic(err)
	}
}
