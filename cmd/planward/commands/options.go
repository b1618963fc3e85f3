package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/planward/planward/pkg/heuristic"
	"github.com/planward/planward/pkg/oracle"
	"github.com/planward/planward/pkg/task"
)

// engineFlags holds the heuristic configuration shared by the evaluate
// and solve commands.
type engineFlags struct {
	mode    string
	combine string

	oracleBackend  string
	oraclePath     string
	oracleFunction string
	oracleArgs     []string
	oracleFallback float64
	oracleFailFast bool

	noCache   bool
	cacheSize int

	explore          bool
	exploreFrequency int
	exploreDepth     int
	exploreBudget    int
	exploreThreshold float64

	logStates bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	defaults := heuristic.DefaultOptions()

	cmd.Flags().StringVar(&f.mode, "mode", string(defaults.Mode), "propagation mode: add or max")
	cmd.Flags().StringVar(&f.combine, "combine", string(defaults.Combine), "oracle combination policy: off, replace, or add")

	cmd.Flags().StringVar(&f.oracleBackend, "oracle", "", "oracle backend: starlark, subprocess, or wasm")
	cmd.Flags().StringVar(&f.oraclePath, "oracle-path", "", "oracle script, executable, or wasm module path")
	cmd.Flags().StringVar(&f.oracleFunction, "oracle-function", "score", "oracle function name")
	cmd.Flags().StringSliceVar(&f.oracleArgs, "oracle-arg", nil, "argument for a subprocess oracle (repeatable)")
	cmd.Flags().Float64Var(&f.oracleFallback, "oracle-fallback", 0, "value substituted when the oracle fails")
	cmd.Flags().BoolVar(&f.oracleFailFast, "oracle-fail-fast", false, "fail instead of degrading when the oracle cannot be resolved")

	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().IntVar(&f.cacheSize, "cache-size", defaults.CacheMaxEntries, "result cache entry bound")

	cmd.Flags().BoolVar(&f.explore, "explore", false, "enable oracle-guided lookahead exploration")
	cmd.Flags().IntVar(&f.exploreFrequency, "explore-frequency", defaults.Exploration.Frequency, "run exploration every Nth evaluation")
	cmd.Flags().IntVar(&f.exploreDepth, "explore-depth", defaults.Exploration.Depth, "exploration probe depth")
	cmd.Flags().IntVar(&f.exploreBudget, "explore-budget", defaults.Exploration.Budget, "oracle evaluations per exploration round")
	cmd.Flags().Float64Var(&f.exploreThreshold, "explore-threshold", defaults.Exploration.ImprovementThreshold, "required successor improvement margin")

	cmd.Flags().BoolVar(&f.logStates, "log-states", false, "trace every evaluated state")
}

// options converts the flags to engine options.
func (f *engineFlags) options() heuristic.Options {
	opts := heuristic.DefaultOptions()
	opts.Mode = heuristic.Mode(f.mode)
	opts.Combine = heuristic.CombineMode(f.combine)
	opts.CacheEnabled = !f.noCache
	opts.CacheMaxEntries = f.cacheSize
	opts.LogStates = f.logStates
	opts.Exploration.Enabled = f.explore
	opts.Exploration.Frequency = f.exploreFrequency
	opts.Exploration.Depth = f.exploreDepth
	opts.Exploration.Budget = f.exploreBudget
	opts.Exploration.ImprovementThreshold = f.exploreThreshold
	return opts
}

// oracleConfigured reports whether an oracle backend was requested.
func (f *engineFlags) oracleConfigured() bool {
	return f.oracleBackend != ""
}

// resolver builds the lazy backend resolver for the bridge.
func (f *engineFlags) resolver(ctx context.Context) oracle.Resolver {
	backend := f.oracleBackend
	path := f.oraclePath
	function := f.oracleFunction
	args := f.oracleArgs

	return func() (oracle.Oracle, error) {
		switch backend {
		case "starlark":
			return oracle.NewStarlarkOracle(oracle.StarlarkConfig{
				Path:     path,
				Function: function,
			})
		case "subprocess":
			return oracle.NewSubprocessOracle(ctx, oracle.SubprocessConfig{
				Command:        path,
				Args:           args,
				StartupTimeout: 10 * time.Second,
			})
		case "wasm":
			return oracle.NewWASMOracle(ctx, oracle.WASMConfig{
				Path:     path,
				Function: function,
			})
		default:
			return nil, fmt.Errorf("unknown oracle backend %q", backend)
		}
	}
}

// bridge builds the oracle bridge, or nil when no oracle is configured.
func (f *engineFlags) bridge(ctx context.Context, resolver oracle.Resolver) (*oracle.Bridge, error) {
	if !f.oracleConfigured() {
		return nil, nil
	}
	if resolver == nil {
		resolver = f.resolver(ctx)
	}
	return oracle.NewBridge(oracle.BridgeConfig{
		Resolver: resolver,
		Fallback: f.oracleFallback,
		FailFast: f.oracleFailFast,
		Logger:   log.Logger,
	})
}

// parseState resolves a comma-separated list of var=value assignments on
// top of the task's initial state.
func parseState(tk *task.Task, spec string) (task.State, error) {
	state := tk.InitialState()
	if spec == "" {
		return state, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed assignment %q, want var=value", pair)
		}
		gf, err := tk.ResolveFact(task.Fact{Variable: parts[0], Value: parts[1]})
		if err != nil {
			return nil, err
		}
		state[gf.Var] = gf.Val
	}
	return state, nil
}
