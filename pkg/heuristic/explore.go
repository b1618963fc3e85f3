package heuristic

import (
	"context"
	"sort"

	"github.com/planward/planward/pkg/task"
)

// explorer probes a bounded frontier of successor states with the
// oracle and marks the operators leading toward the most promising ones
// as preferred. It is a side channel only: the heuristic value returned
// by Compute is never changed by exploration.
type explorer struct {
	e    *Engine
	opts ExplorationOptions

	// frequency is the current every-Nth gate; it doubles as the call
	// count grows so exploration overhead shrinks over a long search.
	frequency uint64

	// history records fingerprints of already-probed states, cleared
	// whole once it outgrows its bound.
	history map[uint64]struct{}
}

// candidate is one scored successor during a probe round.
type candidate struct {
	op    int
	succ  task.State
	score int
}

func newExplorer(e *Engine, opts ExplorationOptions) *explorer {
	return &explorer{
		e:         e,
		opts:      opts,
		frequency: uint64(opts.Frequency),
		history:   make(map[uint64]struct{}),
	}
}

// maybeRun applies the frequency gate and, when it passes, runs one
// probe round rooted at the state.
func (x *explorer) maybeRun(ctx context.Context, state task.State, cost int) {
	calls := x.e.calls
	if calls > 0 && calls%1000 == 0 {
		x.frequency *= 2
	}
	if calls%x.frequency != 0 {
		return
	}
	if cost <= 0 {
		return
	}

	x.e.metrics.RecordExplorationRun()
	budget := x.opts.Budget
	x.probe(ctx, state, cost, x.opts.Depth, &budget, noOp)
}

// probe scores the applicable successors of a state, marks the
// generating operators of the best ones preferred, and descends into
// the top few. rootOp is the first-level operator this branch descends
// from; deeper finds are credited to it, since only first-level
// operators are applicable in the evaluated state.
func (x *explorer) probe(ctx context.Context, state task.State, cost int, depth int, budget *int, rootOp int) {
	if depth <= 0 || *budget <= 0 {
		return
	}

	var cands []candidate
	probes := 0
	for _, op := range x.e.task.ApplicableOperators(state) {
		if *budget <= 0 {
			break
		}
		succ := x.e.task.Apply(op, state)
		fp := Fingerprint(succ)
		if _, seen := x.history[fp]; seen {
			continue
		}
		if len(x.history) >= x.opts.HistoryMaxEntries {
			x.history = make(map[uint64]struct{})
		}
		x.history[fp] = struct{}{}

		*budget--
		probes++
		score, err := x.e.bridge.Score(ctx, x.e.snapshot(succ))
		if err != nil {
			x.e.logger.Debug().Err(err).Msg("Exploration probe aborted, oracle unavailable")
			x.e.metrics.RecordExplorationProbes(probes)
			return
		}
		if float64(score) < float64(cost)*x.opts.ImprovementThreshold {
			cands = append(cands, candidate{op: op, succ: succ, score: score})
		}
	}
	x.e.metrics.RecordExplorationProbes(probes)

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score < cands[j].score
	})

	for i, c := range cands {
		if i >= x.opts.PreferredCap {
			break
		}
		mark := rootOp
		if mark == noOp {
			mark = c.op
		}
		x.e.extractor.markPreferred(mark)
	}

	for i, c := range cands {
		if i >= x.opts.RecurseCap {
			break
		}
		next := rootOp
		if next == noOp {
			next = c.op
		}
		x.probe(ctx, c.succ, c.score, depth-1, budget, next)
	}
}
