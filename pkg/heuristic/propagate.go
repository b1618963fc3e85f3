package heuristic

import (
	"container/heap"

	"github.com/planward/planward/pkg/task"
)

// Mode selects how operator costs accumulate over preconditions.
type Mode string

const (
	// ModeAdditive sums precondition costs (hadd-style). This is the
	// default.
	ModeAdditive Mode = "add"

	// ModeMax takes the maximum precondition cost (hmax-style).
	ModeMax Mode = "max"
)

// Valid reports whether the mode is a known propagation mode.
func (m Mode) Valid() bool {
	return m == ModeAdditive || m == ModeMax
}

// queueEntry is one pending proposition in the relaxation queue. seq is
// a monotonic insertion counter used as tie-break so propagation order,
// and therefore reached-by links, are deterministic.
type queueEntry struct {
	cost int
	seq  int
	prop int
}

// propQueue is a min-cost-first priority queue of propositions.
type propQueue []queueEntry

func (q propQueue) Len() int { return len(q) }

func (q propQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}

func (q propQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *propQueue) Push(x interface{}) {
	*q = append(*q, x.(queueEntry))
}

func (q *propQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// propagator runs the forward Dijkstra-style relaxation over the store.
// It owns the queue so repeated compute calls reuse its backing array.
type propagator struct {
	s     *store
	mode  Mode
	queue propQueue
	seq   int
}

func newPropagator(s *store, mode Mode) *propagator {
	return &propagator{s: s, mode: mode}
}

// run propagates costs from the state facts and reports whether every
// goal proposition is reachable. Proposition costs and reached-by links
// are left in the store for the extractor.
func (p *propagator) run(state task.State) bool {
	p.setup(state)

	s := p.s
	unsolvedGoals := len(s.goalProps)

	for p.queue.Len() > 0 && unsolvedGoals > 0 {
		e := heap.Pop(&p.queue).(queueEntry)
		prop := &s.props[e.prop]
		if prop.cost < e.cost {
			// A cheaper entry for this proposition was already popped.
			continue
		}
		if prop.isGoal {
			unsolvedGoals--
		}

		for _, opID := range s.precondOf[e.prop] {
			op := &s.ops[opID]
			switch p.mode {
			case ModeMax:
				if c := op.baseCost + e.cost; c > op.cost {
					op.cost = c
				}
			default:
				op.cost += e.cost
			}
			op.unsatisfied--
			if op.unsatisfied == 0 {
				p.enqueueIfNecessary(op.effect, op.cost, opID)
			}
		}
	}

	return unsolvedGoals == 0
}

// setup re-initializes all scratch fields, seeds the queue with the
// state's facts at cost 0, and fires operators without preconditions.
func (p *propagator) setup(state task.State) {
	s := p.s

	for i := range s.props {
		s.props[i].cost = unreached
		s.props[i].reachedBy = noOp
		s.props[i].marked = false
	}
	for i := range s.ops {
		op := &s.ops[i]
		op.unsatisfied = len(op.preconditions)
		op.cost = op.baseCost
	}

	p.queue = p.queue[:0]
	p.seq = 0

	for v, val := range state {
		p.enqueueIfNecessary(s.propID(v, val), 0, noOp)
	}
	for _, opID := range s.seedOps {
		op := &s.ops[opID]
		p.enqueueIfNecessary(op.effect, op.cost, opID)
	}
}

// enqueueIfNecessary records an improved cost for a proposition and
// pushes it onto the queue.
func (p *propagator) enqueueIfNecessary(propID, cost, reachedBy int) {
	prop := &p.s.props[propID]
	if prop.cost != unreached && prop.cost <= cost {
		return
	}
	prop.cost = cost
	prop.reachedBy = reachedBy
	p.seq++
	heap.Push(&p.queue, queueEntry{cost: cost, seq: p.seq, prop: propID})
}

// goalCost combines the goal propositions' costs per the propagation
// mode. Call only after run returned true.
func (p *propagator) goalCost() int {
	total := 0
	for _, id := range p.s.goalProps {
		c := p.s.props[id].cost
		if p.mode == ModeMax {
			if c > total {
				total = c
			}
		} else {
			total += c
		}
	}
	return total
}
