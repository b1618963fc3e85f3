package oracle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Fact is one ordered key/value pair of a snapshot: a variable name and
// the name of its current value.
type Fact struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AuxField is an auxiliary scalar attached to a snapshot, such as the
// structural heuristic value computed by the relaxation engine.
type AuxField struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Snapshot is the symbolic form of a planning state handed to an oracle:
// one fact per variable, in variable order, plus optional auxiliary
// scalars. Order is part of the contract; backends must preserve it.
type Snapshot struct {
	Facts []Fact     `json:"facts"`
	Aux   []AuxField `json:"aux,omitempty"`
}

// Oracle maps a snapshot to a scalar cost estimate. Implementations may
// fail; the Bridge defines how failures degrade. A call is synchronous
// and is not cancelled by the Bridge: a hanging oracle hangs the caller.
type Oracle interface {
	Score(ctx context.Context, snapshot Snapshot) (float64, error)
}

// Resolver produces an Oracle on first use. Returning an error marks the
// oracle path unresolvable for the rest of the run.
type Resolver func() (Oracle, error)

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// Resolver produces the backing oracle on first Score call.
	Resolver Resolver

	// Fallback is the value substituted when an oracle call fails.
	Fallback float64

	// FailFast makes resolution failure an error on the first Score call
	// instead of silently disabling the oracle path.
	FailFast bool

	// Logger receives rate-limited failure diagnostics.
	Logger zerolog.Logger
}

// Bridge wraps an Oracle with the engine-facing calling contract.
// Calls are serialized: at most one oracle invocation is in flight.
type Bridge struct {
	mu sync.Mutex

	resolver Resolver
	oracle   Oracle
	ready    bool
	resolved bool
	failFast bool

	resolveErr error
	fallback   float64

	logger zerolog.Logger

	calls  uint64
	faults uint64
}

// NewBridge creates a bridge. The oracle is not resolved until the first
// Score call.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("oracle resolver is required")
	}
	if cfg.Fallback < 0 {
		return nil, fmt.Errorf("oracle fallback must be non-negative, got %g", cfg.Fallback)
	}

	// Oracle failures can occur once per state expansion; sample the log
	// stream so a broken oracle does not drown the search output.
	sampled := cfg.Logger.Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 1000},
	})

	return &Bridge{
		resolver: cfg.Resolver,
		failFast: cfg.FailFast,
		fallback: cfg.Fallback,
		logger:   sampled,
	}, nil
}

// Ready reports whether the oracle resolved successfully. Before the
// first Score call it returns false.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Stats returns the number of oracle calls made and the number that
// degraded to the fallback value.
func (b *Bridge) Stats() (calls, faults uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls, b.faults
}

// Score invokes the oracle on the snapshot and normalizes the result to
// a non-negative integer cost, rounding to the nearest integer.
//
// Resolution happens exactly once. If it fails and FailFast is set, the
// error is returned; otherwise the failure is logged once and every
// subsequent call returns the fallback. An oracle runtime failure or a
// non-finite result degrades to the fallback and never surfaces as an
// error.
func (b *Bridge) Score(ctx context.Context, snapshot Snapshot) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.resolved {
		b.resolved = true
		o, err := b.resolver()
		if err != nil {
			b.resolveErr = fmt.Errorf("oracle resolution failed: %w", err)
			b.logger.Error().Err(err).Msg("Oracle unresolvable, oracle path disabled")
		} else {
			b.oracle = o
			b.ready = true
		}
	}

	if !b.ready {
		if b.failFast {
			return 0, b.resolveErr
		}
		return b.normalize(b.fallback), nil
	}

	b.calls++

	value, err := b.callGuarded(ctx, snapshot)
	if err != nil {
		b.faults++
		b.logger.Warn().Err(err).Msg("Oracle call failed, using fallback")
		value = b.fallback
	}

	return b.normalize(value), nil
}

// callGuarded invokes the oracle, converting a panic in the backend into
// an error so a misbehaving oracle cannot take down the search.
func (b *Bridge) callGuarded(ctx context.Context, snapshot Snapshot) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("oracle panicked: %v", r)
		}
	}()
	return b.oracle.Score(ctx, snapshot)
}

// normalize converts an oracle scalar to the integer cost contract:
// non-finite values fall back, negatives clamp to zero, and the result is
// rounded to the nearest integer.
func (b *Bridge) normalize(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = b.fallback
	}
	if value < 0 {
		value = 0
	}
	return int(math.Round(value))
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, snapshot Snapshot) (float64, error)

// Score implements Oracle.
func (f Func) Score(ctx context.Context, snapshot Snapshot) (float64, error) {
	return f(ctx, snapshot)
}

// Static returns a resolver that yields the given oracle as-is.
func Static(o Oracle) Resolver {
	return func() (Oracle, error) { return o, nil }
}
