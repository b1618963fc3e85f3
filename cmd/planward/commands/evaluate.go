package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/planward/planward/pkg/heuristic"
	"github.com/planward/planward/pkg/oracle"
	"github.com/planward/planward/pkg/task"
)

// evalReloader re-executes the oracle script and re-evaluates the state
// whenever the dev-mode watcher sees the script change.
type evalReloader struct {
	oracle *oracle.StarlarkOracle
	eval   func()
}

func (r evalReloader) Reload() error {
	if err := r.oracle.Reload(); err != nil {
		return err
	}
	r.eval()
	return nil
}

func newEvaluateCommand() *cobra.Command {
	var (
		flags     engineFlags
		stateSpec string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate <task-file>",
		Short: "Compute the heuristic value of a state",
		Long: `Compute the heuristic value, relaxed plan, and preferred operators
for one state of a planning task.

The state defaults to the task's initial state; --state overrides
individual variable assignments.`,
		Example: `  # Evaluate the initial state
  planward evaluate task.yaml

  # Evaluate a specific state with max propagation
  planward evaluate --mode max --state "light=on,door=closed" task.yaml

  # Score through a Starlark oracle and re-evaluate on script edits
  planward evaluate --oracle starlark --oracle-path cost.star \
    --combine replace --watch task.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tk, err := task.Load(args[0])
			if err != nil {
				return err
			}
			state, err := parseState(tk, stateSpec)
			if err != nil {
				return err
			}

			opts := flags.options()
			if watch {
				return evaluateWatch(ctx, tk, state, flags, opts)
			}

			bridge, err := flags.bridge(ctx, nil)
			if err != nil {
				return err
			}
			engine, err := heuristic.NewEngine(heuristic.EngineConfig{
				Task:    tk,
				Oracle:  bridge,
				Options: opts,
				Logger:  log.Logger,
			})
			if err != nil {
				return err
			}
			return evaluateOnce(ctx, tk, engine, state)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&stateSpec, "state", "", "comma-separated var=value overrides of the initial state")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-evaluate whenever the oracle script changes (starlark only)")

	return cmd
}

// evaluateWatch resolves the Starlark oracle eagerly, evaluates once,
// and then re-evaluates on every script change until the context ends.
// The cache is disabled so edits are reflected immediately.
func evaluateWatch(ctx context.Context, tk *task.Task, state task.State, flags engineFlags, opts heuristic.Options) error {
	if flags.oracleBackend != "starlark" {
		return fmt.Errorf("--watch requires the starlark oracle backend, got %q", flags.oracleBackend)
	}

	so, err := oracle.NewStarlarkOracle(oracle.StarlarkConfig{
		Path:     flags.oraclePath,
		Function: flags.oracleFunction,
	})
	if err != nil {
		return err
	}

	opts.CacheEnabled = false
	bridge, err := flags.bridge(ctx, oracle.Static(so))
	if err != nil {
		return err
	}
	engine, err := heuristic.NewEngine(heuristic.EngineConfig{
		Task:    tk,
		Oracle:  bridge,
		Options: opts,
		Logger:  log.Logger,
	})
	if err != nil {
		return err
	}

	eval := func() {
		if err := evaluateOnce(ctx, tk, engine, state); err != nil {
			log.Error().Err(err).Msg("Evaluation failed")
		}
	}
	eval()

	log.Info().Str("script", flags.oraclePath).Msg("Watching oracle script, Ctrl+C to stop")
	err = oracle.WatchScript(ctx, flags.oraclePath, evalReloader{oracle: so, eval: eval}, log.Logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func evaluateOnce(ctx context.Context, tk *task.Task, engine *heuristic.Engine, state task.State) error {
	value, err := engine.Compute(ctx, state)
	if err != nil {
		return err
	}

	plan := make([]string, 0)
	for _, op := range engine.RelaxedPlan() {
		plan = append(plan, tk.OperatorName(op))
	}
	preferred := make([]string, 0)
	for _, op := range engine.PreferredOperators() {
		preferred = append(preferred, tk.OperatorName(op))
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"task":      tk.Name(),
			"value":     value,
			"dead_end":  value == heuristic.DeadEnd,
			"plan":      plan,
			"preferred": preferred,
		})
	}

	if value == heuristic.DeadEnd {
		fmt.Println("Dead end: the goal is unreachable in the relaxed graph")
		return nil
	}
	fmt.Printf("Heuristic value: %d\n", value)
	fmt.Printf("Relaxed plan (%d): %v\n", len(plan), plan)
	fmt.Printf("Preferred operators (%d): %v\n", len(preferred), preferred)
	return nil
}
