package task

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load reads, parses, and compiles a task file.
func Load(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML task document and compiles it.
func Parse(data []byte) (*Task, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse task document: %w", err)
	}
	return Compile(&doc)
}

// Compile validates a task document and resolves every fact reference to
// variable/value indices. The returned Task is immutable.
func Compile(doc *Document) (*Task, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("task validation failed: %w", err)
	}

	t := &Task{
		name:      doc.Name,
		variables: doc.Variables,
		operators: doc.Operators,
		varIndex:  make(map[string]int, len(doc.Variables)),
		valIndex:  make([]map[string]int, len(doc.Variables)),
	}

	for i, v := range doc.Variables {
		if _, dup := t.varIndex[v.Name]; dup {
			return nil, fmt.Errorf("duplicate variable %q", v.Name)
		}
		t.varIndex[v.Name] = i
		t.valIndex[i] = make(map[string]int, len(v.Values))
		for j, name := range v.Values {
			if _, dup := t.valIndex[i][name]; dup {
				return nil, fmt.Errorf("duplicate value %q in variable %q", name, v.Name)
			}
			t.valIndex[i][name] = j
		}
	}

	init, err := t.resolveAssignment(doc.Init)
	if err != nil {
		return nil, fmt.Errorf("invalid init section: %w", err)
	}
	t.init = init

	t.goal = make([]GroundFact, 0, len(doc.Goal))
	goalSeen := make(map[int]bool, len(doc.Goal))
	for _, f := range doc.Goal {
		gf, err := t.ResolveFact(f)
		if err != nil {
			return nil, fmt.Errorf("invalid goal fact %s: %w", f, err)
		}
		if goalSeen[gf.Var] {
			return nil, fmt.Errorf("goal assigns variable %q twice", f.Variable)
		}
		goalSeen[gf.Var] = true
		t.goal = append(t.goal, gf)
	}

	t.groundPre = make([][]GroundFact, len(doc.Operators))
	t.groundEff = make([][]GroundFact, len(doc.Operators))
	opNames := make(map[string]bool, len(doc.Operators))
	for i := range doc.Operators {
		op := &doc.Operators[i]
		if opNames[op.Name] {
			return nil, fmt.Errorf("duplicate operator %q", op.Name)
		}
		opNames[op.Name] = true
		if op.BaseCost() < 0 {
			return nil, fmt.Errorf("operator %q has negative cost %d", op.Name, op.BaseCost())
		}

		pre, err := t.resolveFacts(op.Preconditions)
		if err != nil {
			return nil, fmt.Errorf("invalid preconditions of operator %q: %w", op.Name, err)
		}
		eff, err := t.resolveFacts(op.Effects)
		if err != nil {
			return nil, fmt.Errorf("invalid effects of operator %q: %w", op.Name, err)
		}
		t.groundPre[i] = pre
		t.groundEff[i] = eff
	}

	return t, nil
}

// resolveAssignment resolves a fact list that must assign every variable
// exactly once, returning the corresponding state.
func (t *Task) resolveAssignment(facts []Fact) (State, error) {
	s := make(State, len(t.variables))
	for i := range s {
		s[i] = -1
	}
	for _, f := range facts {
		gf, err := t.ResolveFact(f)
		if err != nil {
			return nil, err
		}
		if s[gf.Var] != -1 {
			return nil, fmt.Errorf("variable %q assigned twice", f.Variable)
		}
		s[gf.Var] = gf.Val
	}
	for v, val := range s {
		if val == -1 {
			return nil, fmt.Errorf("variable %q has no assignment", t.variables[v].Name)
		}
	}
	return s, nil
}

// resolveFacts resolves a fact list, rejecting contradictory facts on the
// same variable.
func (t *Task) resolveFacts(facts []Fact) ([]GroundFact, error) {
	out := make([]GroundFact, 0, len(facts))
	seen := make(map[int]int, len(facts))
	for _, f := range facts {
		gf, err := t.ResolveFact(f)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[gf.Var]; ok && prev != gf.Val {
			return nil, fmt.Errorf("contradictory facts on variable %q", f.Variable)
		}
		seen[gf.Var] = gf.Val
		out = append(out, gf)
	}
	return out, nil
}
