package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
	logLevel   string
	logFormat  string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "planward",
		Short: "Planward - Relaxed Planning-Graph Heuristic Engine",
		Long: `Planward computes goal-distance estimates for finite-domain planning
tasks by propagating costs through a delete-relaxed planning graph.

Features:
  - Additive (hadd) and max (hmax) cost propagation
  - Relaxed-plan extraction with preferred operators
  - Pluggable cost oracles: Starlark scripts, subprocesses, WASM modules
  - Result caching by state fingerprint
  - Oracle-guided lookahead exploration
  - Greedy best-first search driver`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging()
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newSolveCommand())

	return rootCmd
}

// configureLogging applies the persistent logging flags on top of the
// environment-based defaults set in main.
func configureLogging() {
	if logFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level := logLevel
	if level == "" && verbose {
		level = "debug"
	}
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}
