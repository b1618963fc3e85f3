package task

import (
	"fmt"
)

// Fact names a single (variable, value) pair in human-readable form.
type Fact struct {
	// Variable is the name of the variable.
	Variable string `yaml:"var" json:"var" validate:"required"`

	// Value is the name of the value assigned to the variable.
	Value string `yaml:"value" json:"value" validate:"required"`
}

func (f Fact) String() string {
	return fmt.Sprintf("%s=%s", f.Variable, f.Value)
}

// Variable declares one finite-domain state variable.
type Variable struct {
	// Name is the unique variable name.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Values is the ordered list of value names forming the domain.
	Values []string `yaml:"values" json:"values" validate:"required,min=1"`
}

// Operator is a ground action: it is applicable when every precondition
// fact holds, and applying it assigns every effect fact. Delete effects
// are implicit (assigning a variable overwrites its previous value).
type Operator struct {
	// Name is the unique operator name.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Cost is the non-negative base cost. Omitted costs default to 1.
	Cost *int `yaml:"cost,omitempty" json:"cost,omitempty"`

	// Preconditions must all hold for the operator to be applicable.
	Preconditions []Fact `yaml:"preconditions,omitempty" json:"preconditions,omitempty" validate:"dive"`

	// Effects are the facts made true by applying the operator.
	Effects []Fact `yaml:"effects" json:"effects" validate:"required,min=1,dive"`
}

// BaseCost returns the operator cost, defaulting to 1 when unset.
func (o *Operator) BaseCost() int {
	if o.Cost == nil {
		return 1
	}
	return *o.Cost
}

// Document is the raw on-disk form of a planning task.
type Document struct {
	// Name is an optional task label used in logs.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Variables declares the state variables and their domains.
	Variables []Variable `yaml:"variables" json:"variables" validate:"required,min=1,dive"`

	// Init assigns the initial value of every variable.
	Init []Fact `yaml:"init" json:"init" validate:"required,min=1,dive"`

	// Goal is the conjunctive goal condition.
	Goal []Fact `yaml:"goal" json:"goal" validate:"required,min=1,dive"`

	// Operators are the ground actions of the task.
	Operators []Operator `yaml:"operators" json:"operators" validate:"dive"`
}

// State assigns one value index per variable, indexed by variable id.
// States are snapshots: callers must not mutate a State they handed to
// another component.
type State []int

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Equal reports whether two states assign identical values.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i, v := range s {
		if other[i] != v {
			return false
		}
	}
	return true
}

// Task is a validated, index-resolved planning task. It is immutable after
// Compile and safe for concurrent readers.
type Task struct {
	name      string
	variables []Variable
	operators []Operator

	varIndex map[string]int
	valIndex []map[string]int

	init State
	goal []GroundFact

	groundPre [][]GroundFact
	groundEff [][]GroundFact
}

// GroundFact is a fact resolved to variable and value indices.
type GroundFact struct {
	Var int
	Val int
}

// Name returns the task label, or "task" when none was given.
func (t *Task) Name() string {
	if t.name == "" {
		return "task"
	}
	return t.name
}

// NumVariables returns the number of state variables.
func (t *Task) NumVariables() int { return len(t.variables) }

// NumOperators returns the number of ground operators.
func (t *Task) NumOperators() int { return len(t.operators) }

// Variable returns the declaration of variable id v.
func (t *Task) Variable(v int) Variable { return t.variables[v] }

// DomainSize returns the number of values of variable id v.
func (t *Task) DomainSize(v int) int { return len(t.variables[v].Values) }

// VariableName returns the human-readable name of variable id v.
func (t *Task) VariableName(v int) string { return t.variables[v].Name }

// ValueName returns the human-readable name of value val of variable v.
func (t *Task) ValueName(v, val int) string { return t.variables[v].Values[val] }

// Operator returns the declaration of operator id op.
func (t *Task) Operator(op int) *Operator { return &t.operators[op] }

// OperatorName returns the name of operator id op.
func (t *Task) OperatorName(op int) string { return t.operators[op].Name }

// OperatorCost returns the base cost of operator id op.
func (t *Task) OperatorCost(op int) int { return t.operators[op].BaseCost() }

// Preconditions returns the resolved preconditions of operator id op.
func (t *Task) Preconditions(op int) []GroundFact { return t.groundPre[op] }

// Effects returns the resolved effects of operator id op.
func (t *Task) Effects(op int) []GroundFact { return t.groundEff[op] }

// Goal returns the resolved goal facts.
func (t *Task) Goal() []GroundFact { return t.goal }

// InitialState returns a copy of the initial state.
func (t *Task) InitialState() State { return t.init.Clone() }

// Applicable reports whether operator id op can be applied in state s.
func (t *Task) Applicable(op int, s State) bool {
	for _, pre := range t.groundPre[op] {
		if s[pre.Var] != pre.Val {
			return false
		}
	}
	return true
}

// ApplicableOperators returns the ids of all operators applicable in s.
func (t *Task) ApplicableOperators(s State) []int {
	var ops []int
	for op := range t.operators {
		if t.Applicable(op, s) {
			ops = append(ops, op)
		}
	}
	return ops
}

// Apply returns the successor state of applying operator id op in s.
// The caller must ensure the operator is applicable.
func (t *Task) Apply(op int, s State) State {
	succ := s.Clone()
	for _, eff := range t.groundEff[op] {
		succ[eff.Var] = eff.Val
	}
	return succ
}

// GoalSatisfied reports whether every goal fact holds in s.
func (t *Task) GoalSatisfied(s State) bool {
	for _, g := range t.goal {
		if s[g.Var] != g.Val {
			return false
		}
	}
	return true
}

// ResolveFact maps a named fact to variable and value indices.
func (t *Task) ResolveFact(f Fact) (GroundFact, error) {
	v, ok := t.varIndex[f.Variable]
	if !ok {
		return GroundFact{}, fmt.Errorf("unknown variable %q", f.Variable)
	}
	val, ok := t.valIndex[v][f.Value]
	if !ok {
		return GroundFact{}, fmt.Errorf("unknown value %q for variable %q", f.Value, f.Variable)
	}
	return GroundFact{Var: v, Val: val}, nil
}
