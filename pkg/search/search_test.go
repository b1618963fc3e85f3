package search

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/planward/planward/pkg/heuristic"
	"github.com/planward/planward/pkg/task"
)

const switchTask = `
name: switch
variables:
  - name: light
    values: [off, on]
init:
  - {var: light, value: off}
goal:
  - {var: light, value: on}
operators:
  - name: turn_on
    cost: 1
    preconditions:
      - {var: light, value: off}
    effects:
      - {var: light, value: on}
`

const corridorTask = `
name: corridor
variables:
  - name: pos
    values: [a, b, c, d]
init:
  - {var: pos, value: a}
goal:
  - {var: pos, value: d}
operators:
  - name: a_to_b
    preconditions: [{var: pos, value: a}]
    effects: [{var: pos, value: b}]
  - name: b_to_a
    preconditions: [{var: pos, value: b}]
    effects: [{var: pos, value: a}]
  - name: b_to_c
    preconditions: [{var: pos, value: b}]
    effects: [{var: pos, value: c}]
  - name: c_to_d
    preconditions: [{var: pos, value: c}]
    effects: [{var: pos, value: d}]
`

const unsolvableTask = `
name: unsolvable
variables:
  - name: pos
    values: [a, b]
init:
  - {var: pos, value: a}
goal:
  - {var: pos, value: b}
operators: []
`

func buildRun(t *testing.T, yaml string, mutate func(*Config)) (*Result, error) {
	t.Helper()
	tk, err := task.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to parse task: %v", err)
	}
	engine, err := heuristic.NewEngine(heuristic.EngineConfig{
		Task:    tk,
		Options: heuristic.DefaultOptions(),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	cfg := Config{Task: tk, Engine: engine, Logger: zerolog.Nop()}
	if mutate != nil {
		mutate(&cfg)
	}
	return Run(context.Background(), cfg)
}

func TestRun_Switch(t *testing.T) {
	res, err := buildRun(t, switchTask, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Solved {
		t.Fatal("Switch task should be solved")
	}
	if len(res.Plan) != 1 || res.Plan[0] != "turn_on" {
		t.Errorf("Expected plan [turn_on], got %v", res.Plan)
	}
	if res.RunID == "" {
		t.Error("Run id should be set")
	}
}

func TestRun_Corridor(t *testing.T) {
	res, err := buildRun(t, corridorTask, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Solved {
		t.Fatal("Corridor task should be solved")
	}
	want := []string{"a_to_b", "b_to_c", "c_to_d"}
	if len(res.Plan) != len(want) {
		t.Fatalf("Expected plan %v, got %v", want, res.Plan)
	}
	for i, op := range want {
		if res.Plan[i] != op {
			t.Errorf("Plan step %d: expected %s, got %s", i, op, res.Plan[i])
		}
	}
}

func TestRun_Unsolvable(t *testing.T) {
	res, err := buildRun(t, unsolvableTask, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Solved {
		t.Error("Unsolvable task must not report a solution")
	}
	if res.LimitReached {
		t.Error("The open list should drain without hitting the limit")
	}
	if res.DeadEnds == 0 {
		t.Error("The initial state is a structural dead end and should be counted")
	}
}

func TestRun_ExpansionLimit(t *testing.T) {
	res, err := buildRun(t, corridorTask, func(cfg *Config) {
		cfg.MaxExpansions = 1
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Solved {
		t.Error("One expansion is not enough to solve the corridor")
	}
	if !res.LimitReached {
		t.Error("Expected the expansion limit to be reported")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tk, err := task.Parse([]byte(corridorTask))
	if err != nil {
		t.Fatalf("Failed to parse task: %v", err)
	}
	engine, err := heuristic.NewEngine(heuristic.EngineConfig{
		Task:    tk,
		Options: heuristic.DefaultOptions(),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	if _, err := Run(ctx, Config{Task: tk, Engine: engine, Logger: zerolog.Nop()}); err == nil {
		t.Error("Expected a context error from a cancelled run")
	}
}

func TestRun_MissingConfig(t *testing.T) {
	if _, err := Run(context.Background(), Config{}); err == nil {
		t.Error("Expected an error without task and engine")
	}
}
