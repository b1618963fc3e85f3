package heuristic

import (
	"github.com/planward/planward/pkg/task"
)

// noOp is the reached-by sentinel for propositions seeded from the state.
const noOp = -1

// unreached marks a proposition cost before propagation finds it.
const unreached = -1

// proposition is one (variable, value) fact of the relaxed graph.
// cost, reachedBy, and marked are per-call scratch fields; isGoal is
// static.
type proposition struct {
	cost      int
	reachedBy int
	marked    bool
	isGoal    bool
}

// unaryOperator is one relaxed action: a precondition set, a single
// effect proposition, and a base cost. One ground operator yields one
// unary operator per effect fact. cost and unsatisfied are per-call
// scratch fields.
type unaryOperator struct {
	preconditions []int
	effect        int
	baseCost      int

	// operatorNo is the originating ground operator, -1 if synthetic.
	operatorNo int

	cost        int
	unsatisfied int
}

// store is the static proposition/operator arena built once per engine.
// Its shape never changes after construction; only the scratch fields of
// its entries are mutated, and those are re-initialized on every compute
// call.
type store struct {
	task *task.Task

	// varOffset maps a variable id to the prop id of its first value.
	varOffset []int

	props []proposition
	ops   []unaryOperator

	// precondOf lists, per proposition, the unary operators having it as
	// a precondition.
	precondOf [][]int

	// goalProps are the prop ids of the goal facts.
	goalProps []int

	// seedOps are operators with no preconditions; they fire at queue
	// setup rather than being discovered during propagation.
	seedOps []int
}

// newStore builds the arena from a compiled task.
func newStore(t *task.Task) *store {
	s := &store{task: t}

	s.varOffset = make([]int, t.NumVariables())
	numProps := 0
	for v := 0; v < t.NumVariables(); v++ {
		s.varOffset[v] = numProps
		numProps += t.DomainSize(v)
	}
	s.props = make([]proposition, numProps)
	s.precondOf = make([][]int, numProps)

	for _, g := range t.Goal() {
		id := s.propID(g.Var, g.Val)
		s.props[id].isGoal = true
		s.goalProps = append(s.goalProps, id)
	}

	for opNo := 0; opNo < t.NumOperators(); opNo++ {
		pre := t.Preconditions(opNo)
		preIDs := make([]int, len(pre))
		for i, p := range pre {
			preIDs[i] = s.propID(p.Var, p.Val)
		}

		// Delete relaxation: each effect fact becomes its own unary
		// operator; negative effects are dropped entirely.
		for _, eff := range t.Effects(opNo) {
			uo := unaryOperator{
				preconditions: preIDs,
				effect:        s.propID(eff.Var, eff.Val),
				baseCost:      t.OperatorCost(opNo),
				operatorNo:    opNo,
			}
			id := len(s.ops)
			s.ops = append(s.ops, uo)
			for _, p := range preIDs {
				s.precondOf[p] = append(s.precondOf[p], id)
			}
			if len(preIDs) == 0 {
				s.seedOps = append(s.seedOps, id)
			}
		}
	}

	return s
}

// propID maps a (variable, value) pair to its proposition id.
func (s *store) propID(v, val int) int {
	return s.varOffset[v] + val
}

// numProps returns the number of propositions in the arena.
func (s *store) numProps() int {
	return len(s.props)
}
