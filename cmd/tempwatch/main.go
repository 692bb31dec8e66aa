// tempwatch Core - temperature and humidity monitoring service
//
// This is the main entry point for the tempwatch service. Sensors post
// readings over HTTP or MQTT; each reading is stored per device and pushed
// to dashboards over Server-Sent Events and WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/tempwatch-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configPath is bound to the --config flag.
var configPath string

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the root without a
// subcommand serves.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tempwatch",
		Short: "tempwatch - temperature and humidity monitoring",
		Long: `tempwatch ingests sensor readings, stores them per device and
streams every new reading to connected dashboards.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath())
		},
	}
	root.SetVersionTemplate(fmt.Sprintf(
		"tempwatch version %s\nCommit: %s\nBuilt: %s\n",
		version, commit, date,
	))
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to config file (default $TEMPWATCH_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and ingestion pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tempwatch %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// getConfigPath returns the configuration file path.
// The --config flag wins, then TEMPWATCH_CONFIG, then the default.
func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if path := os.Getenv("TEMPWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
