package heuristic

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/planward/planward/pkg/oracle"
	"github.com/planward/planward/pkg/task"
	"github.com/planward/planward/pkg/telemetry"
)

// DeadEnd is the value Compute returns when some goal proposition is
// unreachable in the relaxed graph. It is a sentinel, not an error: the
// host search is expected to prune the state and continue.
const DeadEnd = -1

// EngineConfig assembles an Engine's collaborators.
type EngineConfig struct {
	// Task is the compiled planning task. Required.
	Task *task.Task

	// Oracle is the bridge to the external cost oracle. Optional;
	// required when Options.Combine is not off or exploration is
	// enabled.
	Oracle *oracle.Bridge

	Options Options

	// Logger defaults to a disabled logger.
	Logger zerolog.Logger

	// Metrics and Tracer are optional instrumentation hooks.
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// Engine computes heuristic values over one task. The store's scratch
// fields are mutated in place on every Compute call, so an Engine is not
// safe for concurrent use; give each evaluating goroutine its own
// instance. The cache and oracle bridge persist across calls and may be
// shared between instances.
type Engine struct {
	task *task.Task
	opts Options

	store      *store
	propagator *propagator
	extractor  *extractor
	cache      *resultCache
	bridge     *oracle.Bridge
	explorer   *explorer

	logger  zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	snapFacts []oracle.Fact
	calls     uint64
}

// NewEngine builds an engine for the task, constructing the
// proposition/operator arena once.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Task == nil {
		return nil, NewConfigError("task is required", nil)
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, NewConfigError("invalid engine options", err)
	}
	if cfg.Oracle == nil {
		if cfg.Options.Combine != CombineOff {
			return nil, NewConfigError("combine mode "+string(cfg.Options.Combine)+" requires an oracle", nil)
		}
		if cfg.Options.Exploration.Enabled {
			return nil, NewConfigError("exploration requires an oracle", nil)
		}
	}

	s := newStore(cfg.Task)
	e := &Engine{
		task:       cfg.Task,
		opts:       cfg.Options,
		store:      s,
		propagator: newPropagator(s, cfg.Options.Mode),
		extractor:  newExtractor(s),
		bridge:     cfg.Oracle,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
	}
	if cfg.Options.CacheEnabled {
		e.cache = newResultCache(cfg.Options.CacheMaxEntries)
	}
	if cfg.Options.Exploration.Enabled {
		e.explorer = newExplorer(e, cfg.Options.Exploration)
	}
	return e, nil
}

// Compute returns the heuristic value for the state, or DeadEnd when the
// goal is unreachable in the relaxed graph. The preferred-operator side
// channel is repopulated on every call; on a cache hit it is empty.
//
// Errors carry an EngineError class: config for unusable input or a
// fail-fast oracle, internal for extractor consistency violations.
func (e *Engine) Compute(ctx context.Context, state task.State) (int, error) {
	if len(state) != e.task.NumVariables() {
		return 0, NewConfigError("state length does not match task variable count", nil)
	}

	e.calls++
	timer := telemetry.NewTimer()
	ctx, span := e.startComputeSpan(ctx)

	if e.opts.LogStates {
		e.logger.Trace().Str("state", e.formatState(state)).Msg("Evaluating state")
	}

	fp := Fingerprint(state)
	if e.cache != nil {
		if v, ok := e.cache.get(fp); ok {
			e.metrics.RecordCacheHit()
			e.extractor.clear()
			e.endComputeSpan(span, v, true)
			return v, nil
		}
		e.metrics.RecordCacheMiss()
	}

	if !e.propagator.run(state) {
		e.metrics.RecordDeadEnd()
		e.extractor.clear()
		if e.cache != nil {
			e.cache.put(fp, DeadEnd)
		}
		e.endComputeSpan(span, DeadEnd, false)
		return DeadEnd, nil
	}
	structural := e.propagator.goalCost()

	if err := e.extractor.run(state); err != nil {
		e.endComputeSpan(span, 0, false)
		return 0, err
	}

	value := structural
	if e.opts.Combine != CombineOff && e.bridge != nil {
		score, err := e.scoreState(ctx, state, structural)
		if err != nil {
			e.endComputeSpan(span, 0, false)
			return 0, NewOracleError("oracle unavailable", err)
		}
		if e.opts.Combine == CombineReplace {
			value = score
		} else {
			value = structural + score
		}
	}

	if e.explorer != nil {
		e.explorer.maybeRun(ctx, state, value)
	}

	if e.cache != nil {
		e.cache.put(fp, value)
	}
	e.metrics.RecordComputeCall(string(e.opts.Mode), timer.Duration())
	e.endComputeSpan(span, value, false)
	return value, nil
}

// PreferredOperators returns the ground operator ids flagged preferred
// by the last Compute call, in selection order. The slice is a copy.
func (e *Engine) PreferredOperators() []int {
	out := make([]int, len(e.extractor.preferredOrder))
	copy(out, e.extractor.preferredOrder)
	return out
}

// RelaxedPlan returns the ground operator ids selected into the relaxed
// plan by the last Compute call, in id order.
func (e *Engine) RelaxedPlan() []int {
	var out []int
	for op, in := range e.extractor.relaxedPlan {
		if in {
			out = append(out, op)
		}
	}
	return out
}

// CacheStats returns cache hit and miss counts. Zero when caching is
// disabled.
func (e *Engine) CacheStats() (hits, misses uint64) {
	if e.cache == nil {
		return 0, 0
	}
	return e.cache.stats()
}

// Calls returns the number of Compute invocations so far.
func (e *Engine) Calls() uint64 {
	return e.calls
}

// scoreState snapshots the state, attaches the structural value under
// the configured auxiliary key, and asks the bridge for a score.
func (e *Engine) scoreState(ctx context.Context, state task.State, structural int) (int, error) {
	snap := e.snapshot(state)
	snap.Aux = []oracle.AuxField{{Key: e.opts.structuralKey(), Value: float64(structural)}}

	timer := telemetry.NewTimer()
	ctx, span := e.startOracleSpan(ctx)
	score, err := e.bridge.Score(ctx, snap)
	if span != nil {
		telemetry.RecordError(span, err)
		if err == nil {
			span.SetAttributes(telemetry.AttrOracleScore.Int(score))
		}
		span.End()
	}
	e.metrics.RecordOracleCall(timer.Duration(), err != nil)
	return score, err
}

// startComputeSpan opens a compute span when tracing is wired.
func (e *Engine) startComputeSpan(ctx context.Context) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}
	return e.tracer.StartComputeSpan(ctx, string(e.opts.Mode))
}

// endComputeSpan closes a compute span with the outcome attributes.
func (e *Engine) endComputeSpan(span trace.Span, value int, cacheHit bool) {
	if span == nil {
		return
	}
	span.SetAttributes(
		telemetry.AttrValue.Int(value),
		telemetry.AttrCacheHit.Bool(cacheHit),
		telemetry.AttrDeadEnd.Bool(value == DeadEnd),
	)
	span.End()
}

// startOracleSpan opens an oracle span when tracing is wired.
func (e *Engine) startOracleSpan(ctx context.Context) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}
	return e.tracer.StartOracleSpan(ctx, "bridge")
}

// snapshot converts a state to the oracle's symbolic form, reusing the
// fact slice across calls. Callers must not retain it past the next
// snapshot.
func (e *Engine) snapshot(state task.State) oracle.Snapshot {
	facts := e.snapFacts[:0]
	for v, val := range state {
		facts = append(facts, oracle.Fact{
			Key:   e.task.VariableName(v),
			Value: e.task.ValueName(v, val),
		})
	}
	e.snapFacts = facts
	return oracle.Snapshot{Facts: facts}
}

// formatState renders a state assignment for trace logging.
func (e *Engine) formatState(state task.State) string {
	var b strings.Builder
	for v, val := range state {
		if v > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.task.VariableName(v))
		b.WriteByte('=')
		b.WriteString(e.task.ValueName(v, val))
	}
	return b.String()
}
