package heuristic

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/planward/planward/pkg/oracle"
	"github.com/planward/planward/pkg/task"
)

// countingOracle returns a fixed score and counts invocations.
type countingOracle struct {
	score float64
	err   error
	calls int
}

func (o *countingOracle) Score(ctx context.Context, snapshot oracle.Snapshot) (float64, error) {
	o.calls++
	if o.err != nil {
		return 0, o.err
	}
	return o.score, nil
}

func newTestBridge(t *testing.T, o oracle.Oracle) *oracle.Bridge {
	t.Helper()
	b, err := oracle.NewBridge(oracle.BridgeConfig{
		Resolver: oracle.Static(o),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Failed to build bridge: %v", err)
	}
	return b
}

func newTestEngine(t *testing.T, yaml string, mutate func(*EngineConfig)) *Engine {
	t.Helper()
	cfg := EngineConfig{
		Task:    mustTask(t, yaml),
		Options: DefaultOptions(),
		Logger:  zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	return e
}

func TestEngine_SwitchEndToEnd(t *testing.T) {
	e := newTestEngine(t, switchTask, nil)

	v, err := e.Compute(context.Background(), task.State{0})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected value 1 from state off, got %d", v)
	}
	if plan := e.RelaxedPlan(); len(plan) != 1 || plan[0] != 0 {
		t.Errorf("Expected relaxed plan [turn_on], got %v", plan)
	}
	if pref := e.PreferredOperators(); len(pref) != 1 || pref[0] != 0 {
		t.Errorf("Expected preferred operators [turn_on], got %v", pref)
	}

	v, err = e.Compute(context.Background(), task.State{1})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if v != 0 {
		t.Errorf("Expected value 0 from the goal state, got %d", v)
	}
	if plan := e.RelaxedPlan(); len(plan) != 0 {
		t.Errorf("Expected empty relaxed plan in the goal state, got %v", plan)
	}
}

func TestEngine_Modes(t *testing.T) {
	for _, tc := range []struct {
		mode Mode
		want int
	}{
		{ModeAdditive, 6},
		{ModeMax, 4},
	} {
		e := newTestEngine(t, twoKeyTask, func(cfg *EngineConfig) {
			cfg.Options.Mode = tc.mode
		})
		v, err := e.Compute(context.Background(), e.task.InitialState())
		if err != nil {
			t.Fatalf("Compute in mode %s failed: %v", tc.mode, err)
		}
		if v != tc.want {
			t.Errorf("Mode %s: expected %d, got %d", tc.mode, tc.want, v)
		}
	}
}

func TestEngine_DeadEndSentinel(t *testing.T) {
	// A failing oracle must not matter: the dead end is structural.
	o := &countingOracle{err: errors.New("oracle down")}
	e := newTestEngine(t, deadEndTask, func(cfg *EngineConfig) {
		cfg.Oracle = newTestBridge(t, o)
		cfg.Options.Combine = CombineReplace
	})

	v, err := e.Compute(context.Background(), e.task.InitialState())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if v != DeadEnd {
		t.Errorf("Expected the dead-end sentinel, got %d", v)
	}
	if o.calls != 0 {
		t.Errorf("Oracle must not be consulted for a structural dead end, got %d calls", o.calls)
	}
	if pref := e.PreferredOperators(); len(pref) != 0 {
		t.Errorf("Expected no preferred operators at a dead end, got %v", pref)
	}
}

func TestEngine_CacheIdempotence(t *testing.T) {
	o := &countingOracle{score: 7}
	e := newTestEngine(t, switchTask, func(cfg *EngineConfig) {
		cfg.Oracle = newTestBridge(t, o)
		cfg.Options.Combine = CombineReplace
	})

	first, err := e.Compute(context.Background(), task.State{0})
	if err != nil {
		t.Fatalf("First compute failed: %v", err)
	}
	second, err := e.Compute(context.Background(), task.State{0})
	if err != nil {
		t.Fatalf("Second compute failed: %v", err)
	}

	if first != second {
		t.Errorf("Cached value %d differs from first value %d", second, first)
	}
	if o.calls != 1 {
		t.Errorf("Second call must be served from cache without an oracle call, got %d calls", o.calls)
	}
	if hits, _ := e.CacheStats(); hits != 1 {
		t.Errorf("Expected 1 cache hit, got %d", hits)
	}
	if pref := e.PreferredOperators(); len(pref) != 0 {
		t.Errorf("Preferred set should be empty on a cache hit, got %v", pref)
	}
}

func TestEngine_NoFalseCacheHit(t *testing.T) {
	e := newTestEngine(t, switchTask, nil)

	v0, _ := e.Compute(context.Background(), task.State{0})
	v1, _ := e.Compute(context.Background(), task.State{1})
	if v0 == v1 {
		t.Errorf("Differing states must not share a cached value: %d vs %d", v0, v1)
	}
}

func TestEngine_OracleFaultFallback(t *testing.T) {
	o := &countingOracle{err: errors.New("injected fault")}
	e := newTestEngine(t, switchTask, func(cfg *EngineConfig) {
		cfg.Oracle = newTestBridge(t, o)
		cfg.Options.Combine = CombineReplace
	})

	v, err := e.Compute(context.Background(), task.State{0})
	if err != nil {
		t.Fatalf("An oracle fault must not surface as an error: %v", err)
	}
	if v < 0 {
		t.Errorf("Fallback value must be non-negative, got %d", v)
	}
	if o.calls != 1 {
		t.Errorf("Expected exactly one oracle attempt, got %d", o.calls)
	}
}

func TestEngine_CombinePolicies(t *testing.T) {
	for _, tc := range []struct {
		combine CombineMode
		want    int
	}{
		{CombineOff, 1},
		{CombineReplace, 5},
		{CombineAdd, 6},
	} {
		o := &countingOracle{score: 5}
		e := newTestEngine(t, switchTask, func(cfg *EngineConfig) {
			cfg.Oracle = newTestBridge(t, o)
			cfg.Options.Combine = tc.combine
		})
		v, err := e.Compute(context.Background(), task.State{0})
		if err != nil {
			t.Fatalf("Compute with combine %s failed: %v", tc.combine, err)
		}
		if v != tc.want {
			t.Errorf("Combine %s: expected %d, got %d", tc.combine, tc.want, v)
		}
		wantCalls := 1
		if tc.combine == CombineOff {
			wantCalls = 0
		}
		if o.calls != wantCalls {
			t.Errorf("Combine %s: expected %d oracle calls, got %d", tc.combine, wantCalls, o.calls)
		}
	}
}

func TestEngine_StructuralAuxField(t *testing.T) {
	var seen oracle.Snapshot
	o := oracle.Func(func(ctx context.Context, s oracle.Snapshot) (float64, error) {
		seen = oracle.Snapshot{
			Facts: append([]oracle.Fact(nil), s.Facts...),
			Aux:   append([]oracle.AuxField(nil), s.Aux...),
		}
		return 0, nil
	})
	e := newTestEngine(t, switchTask, func(cfg *EngineConfig) {
		cfg.Oracle = newTestBridge(t, o)
		cfg.Options.Combine = CombineAdd
	})

	if _, err := e.Compute(context.Background(), task.State{0}); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(seen.Facts) != 1 || seen.Facts[0].Key != "light" || seen.Facts[0].Value != "off" {
		t.Errorf("Unexpected snapshot facts: %+v", seen.Facts)
	}
	if len(seen.Aux) != 1 || seen.Aux[0].Key != "h_add" || seen.Aux[0].Value != 1 {
		t.Errorf("Expected aux h_add=1, got %+v", seen.Aux)
	}
}

func TestEngine_ConfigErrors(t *testing.T) {
	if _, err := NewEngine(EngineConfig{Options: DefaultOptions()}); !IsConfig(err) {
		t.Errorf("Missing task should be a config error, got %v", err)
	}

	cfg := EngineConfig{Task: mustTask(t, switchTask), Options: DefaultOptions()}
	cfg.Options.Combine = CombineReplace
	if _, err := NewEngine(cfg); !IsConfig(err) {
		t.Errorf("Combine without an oracle should be a config error, got %v", err)
	}

	e := newTestEngine(t, switchTask, nil)
	if _, err := e.Compute(context.Background(), task.State{0, 0}); !IsConfig(err) {
		t.Errorf("State length mismatch should be a config error, got %v", err)
	}
}

func TestEngine_FailFastResolution(t *testing.T) {
	b, err := oracle.NewBridge(oracle.BridgeConfig{
		Resolver: func() (oracle.Oracle, error) { return nil, fmt.Errorf("no such module") },
		FailFast: true,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Failed to build bridge: %v", err)
	}
	e := newTestEngine(t, switchTask, func(cfg *EngineConfig) {
		cfg.Oracle = b
		cfg.Options.Combine = CombineReplace
	})

	if _, err := e.Compute(context.Background(), task.State{0}); !IsOracle(err) {
		t.Errorf("Unresolvable oracle with fail-fast should be an oracle error, got %v", err)
	}
}
