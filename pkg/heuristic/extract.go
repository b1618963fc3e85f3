package heuristic

import (
	"github.com/planward/planward/pkg/task"
)

// extractor walks reached-by links backward from the goal propositions,
// collecting the relaxed plan and the preferred operators.
type extractor struct {
	s *store

	// relaxedPlan flags selected ground operators by id.
	relaxedPlan []bool

	// preferred flags ground operators that are both in the relaxed plan
	// and immediately applicable; preferredOrder keeps selection order.
	preferred      []bool
	preferredOrder []int

	// stack is the explicit traversal stack, reused across calls so the
	// walk is bounded by the arena size rather than goroutine stack
	// depth.
	stack []extractFrame
}

// extractFrame tracks one unary operator whose preconditions are being
// processed.
type extractFrame struct {
	op   int
	next int
}

func newExtractor(s *store) *extractor {
	return &extractor{
		s:           s,
		relaxedPlan: make([]bool, s.task.NumOperators()),
		preferred:   make([]bool, s.task.NumOperators()),
	}
}

// run marks the relaxed plan for every goal proposition. Propagation
// must have succeeded for the given state beforehand. It fails with an
// internal error if a preferred operator is not applicable in the real
// state; that indicates a bug in the engine, not an input problem.
func (x *extractor) run(state task.State) error {
	for i := range x.relaxedPlan {
		x.relaxedPlan[i] = false
		x.preferred[i] = false
	}
	x.preferredOrder = x.preferredOrder[:0]

	// Goal propositions are visited in goal order; marks persist across
	// the whole extraction so no proposition is processed twice.
	for _, goalID := range x.s.goalProps {
		if err := x.markFrom(goalID, state); err != nil {
			return err
		}
	}
	return nil
}

// markFrom performs the backward walk from a single proposition using an
// explicit stack. An operator's preconditions are fully processed before
// the operator itself is added to the plan, so the plan builds
// bottom-up, matching the recursive formulation.
func (x *extractor) markFrom(propID int, state task.State) error {
	s := x.s

	if s.props[propID].marked {
		return nil
	}
	s.props[propID].marked = true
	if s.props[propID].reachedBy == noOp {
		return nil
	}

	x.stack = x.stack[:0]
	x.stack = append(x.stack, extractFrame{op: s.props[propID].reachedBy})

	for len(x.stack) > 0 {
		f := &x.stack[len(x.stack)-1]
		op := &s.ops[f.op]

		if f.next < len(op.preconditions) {
			pre := op.preconditions[f.next]
			f.next++
			if !s.props[pre].marked {
				s.props[pre].marked = true
				if by := s.props[pre].reachedBy; by != noOp {
					x.stack = append(x.stack, extractFrame{op: by})
				}
			}
			continue
		}

		x.stack = x.stack[:len(x.stack)-1]
		if err := x.finalize(f.op, state); err != nil {
			return err
		}
	}
	return nil
}

// finalize adds a fully-processed unary operator to the relaxed plan and
// flags it preferred when none of its preconditions had to be achieved,
// i.e. all were true in the original state.
func (x *extractor) finalize(opID int, state task.State) error {
	s := x.s
	op := &s.ops[opID]
	if op.operatorNo == -1 {
		return nil
	}

	isPreferred := true
	for _, pre := range op.preconditions {
		if s.props[pre].reachedBy != noOp {
			isPreferred = false
			break
		}
	}

	x.relaxedPlan[op.operatorNo] = true
	if isPreferred && !x.preferred[op.operatorNo] {
		if !s.task.Applicable(op.operatorNo, state) {
			return NewInternalError("preferred operator is not applicable in the current state").
				WithOperator(s.task.OperatorName(op.operatorNo))
		}
		x.preferred[op.operatorNo] = true
		x.preferredOrder = append(x.preferredOrder, op.operatorNo)
	}
	return nil
}

// markPreferred flags an operator preferred outside extraction, used by
// the lookahead explorer. Callers verify applicability first.
func (x *extractor) markPreferred(opNo int) {
	if !x.preferred[opNo] {
		x.preferred[opNo] = true
		x.preferredOrder = append(x.preferredOrder, opNo)
	}
}

// clear empties the relaxed plan and the preferred set without running
// an extraction, used on compute paths that skip it.
func (x *extractor) clear() {
	for i := range x.relaxedPlan {
		x.relaxedPlan[i] = false
		x.preferred[i] = false
	}
	x.preferredOrder = x.preferredOrder[:0]
}
