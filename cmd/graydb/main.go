// graydb runs the database session facade as an observable service.
//
// The serve command opens one session per configured driver and exposes
// their counters, audit trail and live statement stream over the admin API,
// Prometheus, MQTT and InfluxDB. The remaining commands are operator tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "graydb",
		Short:         "Driver-agnostic database sessions with observers and an audit trail",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", getConfigPath(), "Path to config.yaml (env GRAYDB_CONFIG)")

	root.AddCommand(
		serveCmd(&configPath),
		execCmd(&configPath),
		tokenCmd(&configPath),
		hashPasswordCmd(),
		versionCmd(),
	)
	return root
}

// getConfigPath returns the configuration file path.
// Uses GRAYDB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYDB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graydb %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
