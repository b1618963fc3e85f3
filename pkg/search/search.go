// Package search provides a greedy best-first search driver over a
// planning task, guided by the heuristic engine and its
// preferred-operator side channel.
package search

import (
	"container/heap"
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/planward/planward/pkg/heuristic"
	"github.com/planward/planward/pkg/task"
	"github.com/planward/planward/pkg/telemetry"
)

// Config assembles a search run.
type Config struct {
	// Task is the compiled planning task. Required.
	Task *task.Task

	// Engine evaluates states. Required. The driver owns it for the
	// duration of the run; heuristic engines are not safe for sharing
	// across concurrent runs.
	Engine *heuristic.Engine

	// MaxExpansions bounds the number of expanded states; 0 means
	// unbounded.
	MaxExpansions int

	// Logger defaults to a disabled logger.
	Logger zerolog.Logger

	// Metrics and Tracer are optional instrumentation hooks.
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// Result reports the outcome of a search run.
type Result struct {
	// RunID identifies the run in logs and traces.
	RunID string

	// Solved is true when a goal state was reached. The plan is then
	// the operator names applied from the initial state, in order.
	Solved bool
	Plan   []string

	// LimitReached is true when the expansion bound stopped the search
	// before the open list drained.
	LimitReached bool

	Expansions int
	Generated  int
	DeadEnds   int
}

// node is one open-list entry. States are evaluated when popped, so the
// ordering key is the parent's heuristic value; successors generated by
// a preferred operator win ties.
type node struct {
	state     task.State
	parent    *node
	op        int
	parentH   int
	preferred bool
	seq       int
}

type openList []*node

func (o openList) Len() int { return len(o) }

func (o openList) Less(i, j int) bool {
	if o[i].parentH != o[j].parentH {
		return o[i].parentH < o[j].parentH
	}
	if o[i].preferred != o[j].preferred {
		return o[i].preferred
	}
	return o[i].seq < o[j].seq
}

func (o openList) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openList) Push(x interface{}) {
	*o = append(*o, x.(*node))
}

func (o *openList) Pop() interface{} {
	old := *o
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return e
}

// Run performs a greedy best-first search from the task's initial state.
// It returns an error only for engine failures or context cancellation;
// an exhausted search is a non-error Result with Solved false.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Task == nil || cfg.Engine == nil {
		return nil, errors.New("search requires a task and an engine")
	}

	runID := uuid.New().String()
	logger := cfg.Logger.With().Str("run_id", runID).Logger()

	if cfg.Tracer != nil {
		var span trace.Span
		ctx, span = cfg.Tracer.StartSearchSpan(ctx, runID, cfg.Task.Name())
		defer span.End()
	}

	res := &Result{RunID: runID}
	open := openList{}
	heap.Init(&open)
	closed := make(map[uint64]struct{})
	seq := 0

	heap.Push(&open, &node{state: cfg.Task.InitialState(), op: -1})
	res.Generated++

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if cfg.MaxExpansions > 0 && res.Expansions >= cfg.MaxExpansions {
			res.LimitReached = true
			logger.Warn().Int("expansions", res.Expansions).Msg("Expansion limit reached")
			return res, nil
		}

		n := heap.Pop(&open).(*node)
		cfg.Metrics.SetOpenListSize(open.Len())

		fp := heuristic.Fingerprint(n.state)
		if _, seen := closed[fp]; seen {
			continue
		}
		closed[fp] = struct{}{}

		if cfg.Task.GoalSatisfied(n.state) {
			res.Solved = true
			res.Plan = extractPlan(cfg.Task, n)
			logger.Info().
				Int("expansions", res.Expansions).
				Int("plan_length", len(res.Plan)).
				Msg("Solution found")
			return res, nil
		}

		h, err := cfg.Engine.Compute(ctx, n.state)
		if err != nil {
			return res, err
		}
		if h == heuristic.DeadEnd {
			res.DeadEnds++
			continue
		}

		res.Expansions++
		cfg.Metrics.RecordExpansion()

		preferred := make(map[int]bool)
		for _, op := range cfg.Engine.PreferredOperators() {
			preferred[op] = true
		}

		for _, op := range cfg.Task.ApplicableOperators(n.state) {
			succ := cfg.Task.Apply(op, n.state)
			if _, seen := closed[heuristic.Fingerprint(succ)]; seen {
				continue
			}
			seq++
			heap.Push(&open, &node{
				state:     succ,
				parent:    n,
				op:        op,
				parentH:   h,
				preferred: preferred[op],
				seq:       seq,
			})
			res.Generated++
		}
	}

	logger.Info().Int("expansions", res.Expansions).Msg("Search space exhausted, no solution")
	return res, nil
}

// extractPlan walks the parent chain back to the root and returns the
// applied operator names in execution order.
func extractPlan(t *task.Task, n *node) []string {
	var ops []int
	for ; n.parent != nil; n = n.parent {
		ops = append(ops, n.op)
	}
	plan := make([]string, len(ops))
	for i := range ops {
		plan[i] = t.OperatorName(ops[len(ops)-1-i])
	}
	return plan
}
