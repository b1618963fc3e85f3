package heuristic

import (
	"context"
	"fmt"
	"testing"

	"github.com/planward/planward/pkg/oracle"
)

// forkTask reaches the goal structurally only through c, while a and b
// are side branches the explorer can probe.
const forkTask = `
name: fork
variables:
  - name: pos
    values: [start, a, b, c, done]
init:
  - {var: pos, value: start}
goal:
  - {var: pos, value: done}
operators:
  - name: go_a
    preconditions:
      - {var: pos, value: start}
    effects:
      - {var: pos, value: a}
  - name: go_b
    preconditions:
      - {var: pos, value: start}
    effects:
      - {var: pos, value: b}
  - name: go_c
    preconditions:
      - {var: pos, value: start}
    effects:
      - {var: pos, value: c}
  - name: finish
    preconditions:
      - {var: pos, value: c}
    effects:
      - {var: pos, value: done}
  - name: leap
    cost: 3
    preconditions:
      - {var: pos, value: b}
    effects:
      - {var: pos, value: done}
`

// positionOracle scores a state by its pos value and counts calls.
type positionOracle struct {
	scores map[string]float64
	calls  int
}

func (o *positionOracle) Score(ctx context.Context, s oracle.Snapshot) (float64, error) {
	o.calls++
	for _, f := range s.Facts {
		if f.Key == "pos" {
			if v, ok := o.scores[f.Value]; ok {
				return v, nil
			}
			return 0, fmt.Errorf("no score for pos=%s", f.Value)
		}
	}
	return 0, fmt.Errorf("snapshot has no pos fact")
}

func exploringEngine(t *testing.T, o oracle.Oracle, mutate func(*EngineConfig)) *Engine {
	t.Helper()
	return newTestEngine(t, forkTask, func(cfg *EngineConfig) {
		cfg.Oracle = newTestBridge(t, o)
		cfg.Options.Combine = CombineReplace
		cfg.Options.CacheEnabled = false
		cfg.Options.Exploration = ExplorationOptions{
			Enabled:              true,
			Frequency:            1,
			Depth:                1,
			Budget:               8,
			ImprovementThreshold: 0.5,
			PreferredCap:         3,
			RecurseCap:           2,
			HistoryMaxEntries:    64,
		}
		if mutate != nil {
			mutate(cfg)
		}
	})
}

func preferredSet(e *Engine) map[int]bool {
	out := make(map[int]bool)
	for _, op := range e.PreferredOperators() {
		out[op] = true
	}
	return out
}

func TestExplore_ImprovementThreshold(t *testing.T) {
	// Current cost 10; a successor scored 4 beats 10*0.5, one scored 9
	// does not.
	o := &positionOracle{scores: map[string]float64{
		"start": 10,
		"a":     4,
		"b":     9,
		"c":     9,
	}}
	e := exploringEngine(t, o, nil)

	v, err := e.Compute(context.Background(), e.task.InitialState())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if v != 10 {
		t.Fatalf("Expected oracle value 10, got %d", v)
	}

	pref := preferredSet(e)
	if !pref[0] {
		t.Error("go_a leads to a 4-scored successor and must be preferred")
	}
	if pref[1] {
		t.Error("go_b leads to a 9-scored successor and must not be preferred")
	}
	// go_c is preferred through the relaxed plan regardless of its
	// probe score.
	if !pref[2] {
		t.Error("go_c is in the relaxed plan and applicable, so it stays preferred")
	}
}

func TestExplore_DeepFindCreditsRootOperator(t *testing.T) {
	// With a preferred cap of 1, only go_a is marked at the first level
	// (3 beats 4). The probe still descends into b's branch, finds done
	// scored 1, and credits go_b, the first-level operator it descended
	// from, never leap itself.
	o := &positionOracle{scores: map[string]float64{
		"start": 10,
		"a":     3,
		"b":     4,
		"c":     9,
		"done":  1,
	}}
	e := exploringEngine(t, o, func(cfg *EngineConfig) {
		cfg.Options.Exploration.Depth = 2
		cfg.Options.Exploration.PreferredCap = 1
	})

	if _, err := e.Compute(context.Background(), e.task.InitialState()); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	pref := preferredSet(e)
	if !pref[0] {
		t.Error("go_a must be preferred after the first probe level")
	}
	if !pref[1] {
		t.Error("go_b must be preferred after its branch probes well")
	}
	if pref[4] {
		t.Error("leap is not applicable in the evaluated state and must not be preferred")
	}
	for _, op := range e.PreferredOperators() {
		if !e.task.Applicable(op, e.task.InitialState()) {
			t.Errorf("Preferred operator %s is not applicable in the evaluated state", e.task.OperatorName(op))
		}
	}
}

func TestExplore_FrequencyGate(t *testing.T) {
	o := &positionOracle{scores: map[string]float64{
		"start": 10, "a": 4, "b": 9, "c": 9,
	}}
	e := exploringEngine(t, o, func(cfg *EngineConfig) {
		cfg.Options.Exploration.Frequency = 2
	})
	state := e.task.InitialState()

	if _, err := e.Compute(context.Background(), state); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if preferredSet(e)[0] {
		t.Error("Exploration must not run on the first call with frequency 2")
	}

	if _, err := e.Compute(context.Background(), state); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !preferredSet(e)[0] {
		t.Error("Exploration should run on the second call with frequency 2")
	}
}

func TestExplore_HistorySkipsProbedStates(t *testing.T) {
	o := &positionOracle{scores: map[string]float64{
		"start": 10, "a": 4, "b": 9, "c": 9,
	}}
	e := exploringEngine(t, o, nil)
	state := e.task.InitialState()

	if _, err := e.Compute(context.Background(), state); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	after := o.calls

	if _, err := e.Compute(context.Background(), state); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// The second call scores the root again but probes nothing new.
	if o.calls != after+1 {
		t.Errorf("Expected only the root score on the second call, got %d extra calls", o.calls-after)
	}
}

func TestExplore_ValueUnchangedByExploration(t *testing.T) {
	o := &positionOracle{scores: map[string]float64{
		"start": 10, "a": 4, "b": 9, "c": 9,
	}}
	gated := exploringEngine(t, o, func(cfg *EngineConfig) {
		cfg.Options.Exploration.Enabled = false
	})
	exploring := exploringEngine(t, o, nil)

	v1, err := gated.Compute(context.Background(), gated.task.InitialState())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	v2, err := exploring.Compute(context.Background(), exploring.task.InitialState())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if v1 != v2 {
		t.Errorf("Exploration must not change the returned value: %d vs %d", v1, v2)
	}
}
