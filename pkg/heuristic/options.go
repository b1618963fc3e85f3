package heuristic

import "fmt"

// CombineMode selects how an oracle score merges with the structural
// relaxation value.
type CombineMode string

const (
	// CombineOff ignores the oracle; the structural value is returned.
	CombineOff CombineMode = "off"

	// CombineReplace returns the oracle score instead of the structural
	// value. The structural value is still handed to the oracle as an
	// auxiliary field so it can factor it in.
	CombineReplace CombineMode = "replace"

	// CombineAdd returns the sum of the structural value and the oracle
	// score.
	CombineAdd CombineMode = "add"
)

// Valid reports whether the combine mode is known.
func (c CombineMode) Valid() bool {
	return c == CombineOff || c == CombineReplace || c == CombineAdd
}

// ExplorationOptions tunes the lookahead explorer. The explorer only
// influences the preferred-operator side channel, never the returned
// value.
type ExplorationOptions struct {
	// Enabled turns the explorer on. Requires an oracle.
	Enabled bool

	// Frequency runs the explorer on every Nth compute call. The engine
	// doubles it after every 1000 calls so exploration overhead shrinks
	// as the search grows.
	Frequency int

	// Depth limits how many successor generations a probe descends.
	Depth int

	// Budget caps oracle evaluations per explorer run, shared across
	// the whole recursion.
	Budget int

	// ImprovementThreshold is the multiplicative margin a successor's
	// score must beat: it survives only if score < cost * threshold.
	// 0.9 demands a 10% improvement.
	ImprovementThreshold float64

	// PreferredCap bounds how many surviving operators are marked
	// preferred per level.
	PreferredCap int

	// RecurseCap bounds how many surviving successors are descended
	// into per level.
	RecurseCap int

	// HistoryMaxEntries bounds the probed-fingerprint set; the set is
	// cleared whole once it grows past the bound.
	HistoryMaxEntries int
}

// Options configures an Engine.
type Options struct {
	// Mode selects the propagation flavor, additive or max.
	Mode Mode

	// Combine selects the oracle combination policy.
	Combine CombineMode

	// StructuralKey names the auxiliary snapshot field carrying the
	// structural value to the oracle. Empty derives it from Mode:
	// "h_add" or "h_max".
	StructuralKey string

	// CacheEnabled memoizes compute results by state fingerprint.
	CacheEnabled bool

	// CacheMaxEntries bounds the cache; exceeding it drops all entries.
	CacheMaxEntries int

	// LogStates traces every evaluated state assignment. Verbose.
	LogStates bool

	Exploration ExplorationOptions
}

// DefaultOptions returns the documented defaults: additive propagation,
// oracle off, caching on with a 500000-entry bound, exploration off with
// the standard probe shape.
func DefaultOptions() Options {
	return Options{
		Mode:            ModeAdditive,
		Combine:         CombineOff,
		CacheEnabled:    true,
		CacheMaxEntries: 500000,
		Exploration: ExplorationOptions{
			Frequency:            10,
			Depth:                2,
			Budget:               32,
			ImprovementThreshold: 0.9,
			PreferredCap:         3,
			RecurseCap:           2,
			HistoryMaxEntries:    4096,
		},
	}
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if !o.Mode.Valid() {
		return fmt.Errorf("unknown propagation mode %q", o.Mode)
	}
	if !o.Combine.Valid() {
		return fmt.Errorf("unknown combine mode %q", o.Combine)
	}
	if o.CacheEnabled && o.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive, got %d", o.CacheMaxEntries)
	}
	if o.Exploration.Enabled {
		x := o.Exploration
		if x.Frequency <= 0 {
			return fmt.Errorf("exploration frequency must be positive, got %d", x.Frequency)
		}
		if x.Depth <= 0 {
			return fmt.Errorf("exploration depth must be positive, got %d", x.Depth)
		}
		if x.Budget <= 0 {
			return fmt.Errorf("exploration budget must be positive, got %d", x.Budget)
		}
		if x.ImprovementThreshold <= 0 || x.ImprovementThreshold > 1 {
			return fmt.Errorf("exploration improvement threshold must be in (0, 1], got %g", x.ImprovementThreshold)
		}
		if x.PreferredCap <= 0 || x.RecurseCap <= 0 {
			return fmt.Errorf("exploration caps must be positive")
		}
		if x.HistoryMaxEntries <= 0 {
			return fmt.Errorf("exploration history bound must be positive, got %d", x.HistoryMaxEntries)
		}
	}
	return nil
}

// structuralKey resolves the auxiliary field name for the configured
// mode.
func (o Options) structuralKey() string {
	if o.StructuralKey != "" {
		return o.StructuralKey
	}
	if o.Mode == ModeMax {
		return "h_max"
	}
	return "h_add"
}
