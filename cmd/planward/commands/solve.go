package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/planward/planward/pkg/heuristic"
	"github.com/planward/planward/pkg/search"
	"github.com/planward/planward/pkg/task"
	"github.com/planward/planward/pkg/telemetry"
)

func newSolveCommand() *cobra.Command {
	var (
		flags         engineFlags
		maxExpansions int
		metricsListen string
		traceExporter string
	)

	cmd := &cobra.Command{
		Use:   "solve <task-file>",
		Short: "Search for a plan with greedy best-first search",
		Long: `Run a greedy best-first search from the task's initial state,
guided by the heuristic engine. Successors generated by preferred
operators are tried first among equal heuristic values.`,
		Example: `  # Solve a task with the structural heuristic
  planward solve task.yaml

  # Solve with a WASM oracle and exploration, exposing metrics
  planward solve --oracle wasm --oracle-path cost.wasm --combine replace \
    --explore --metrics-listen :9090 task.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tk, err := task.Load(args[0])
			if err != nil {
				return err
			}

			telCfg := telemetry.DefaultConfig()
			telCfg.Metrics.Enabled = metricsListen != ""
			telCfg.Metrics.ListenAddress = metricsListen
			telCfg.Tracing.Enabled = traceExporter != ""
			telCfg.Tracing.Exporter = traceExporter
			tel, err := telemetry.NewTelemetry(telCfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := tel.Shutdown(ctx); err != nil {
					log.Warn().Err(err).Msg("Telemetry shutdown failed")
				}
			}()
			if err := tel.StartMetricsServer(); err != nil {
				return err
			}

			bridge, err := flags.bridge(ctx, nil)
			if err != nil {
				return err
			}
			engine, err := heuristic.NewEngine(heuristic.EngineConfig{
				Task:    tk,
				Oracle:  bridge,
				Options: flags.options(),
				Logger:  log.Logger,
				Metrics: tel.Metrics,
				Tracer:  tel.Tracer,
			})
			if err != nil {
				return err
			}

			res, err := search.Run(ctx, search.Config{
				Task:          tk,
				Engine:        engine,
				MaxExpansions: maxExpansions,
				Logger:        log.Logger,
				Metrics:       tel.Metrics,
				Tracer:        tel.Tracer,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(res)
			}

			if !res.Solved {
				if res.LimitReached {
					fmt.Printf("No solution within %d expansions\n", maxExpansions)
				} else {
					fmt.Println("No solution: the search space is exhausted")
				}
				fmt.Printf("Expansions: %d, generated: %d, dead ends: %d\n",
					res.Expansions, res.Generated, res.DeadEnds)
				return nil
			}

			fmt.Printf("Plan found (%d steps):\n", len(res.Plan))
			for i, op := range res.Plan {
				fmt.Printf("  %d. %s\n", i+1, op)
			}
			fmt.Printf("Expansions: %d, generated: %d, dead ends: %d\n",
				res.Expansions, res.Generated, res.DeadEnds)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&maxExpansions, "max-expansions", 0, "stop after this many expansions (0 = unbounded)")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "expose Prometheus metrics on this address")
	cmd.Flags().StringVar(&traceExporter, "trace-exporter", "", "trace exporter: stdout or otlp")

	return cmd
}
