package oracle

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.starlark.net/starlark"
)

// StarlarkConfig configures a Starlark script oracle.
type StarlarkConfig struct {
	// Path is the script file to load.
	Path string

	// Function is the name of the global function to call. It must accept
	// a single dict argument and return a number.
	Function string
}

// StarlarkOracle evaluates a cost function defined in a Starlark script.
// The script is loaded once; Reload re-executes it, which is used by the
// dev-mode file watcher.
type StarlarkOracle struct {
	mu  sync.RWMutex
	cfg StarlarkConfig
	fn  starlark.Callable
}

// NewStarlarkOracle loads the script and resolves the cost function.
func NewStarlarkOracle(cfg StarlarkConfig) (*StarlarkOracle, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("starlark oracle requires a script path")
	}
	if cfg.Function == "" {
		return nil, fmt.Errorf("starlark oracle requires a function name")
	}

	o := &StarlarkOracle{cfg: cfg}
	if err := o.Reload(); err != nil {
		return nil, err
	}
	return o, nil
}

// Reload re-executes the script file and re-resolves the cost function.
func (o *StarlarkOracle) Reload() error {
	src, err := os.ReadFile(o.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to read oracle script: %w", err)
	}

	fn, err := resolveStarlarkFunction(o.cfg.Path, src, o.cfg.Function)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.fn = fn
	o.mu.Unlock()
	return nil
}

// resolveStarlarkFunction executes a script and looks up a callable global.
func resolveStarlarkFunction(filename string, src []byte, name string) (starlark.Callable, error) {
	thread := &starlark.Thread{
		Name: "planward-oracle",
		Print: func(_ *starlark.Thread, msg string) {
			// Suppress print output from oracle scripts.
		},
	}

	globals, err := starlark.ExecFile(thread, filename, src, nil)
	if err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", err)
	}

	val, ok := globals[name]
	if !ok {
		return nil, fmt.Errorf("function %q not found in %s", name, filename)
	}
	fn, ok := val.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("global %q in %s is not callable", name, filename)
	}
	return fn, nil
}

// Score implements Oracle by calling the script function with a dict of
// the snapshot's facts and auxiliary fields.
func (o *StarlarkOracle) Score(ctx context.Context, snapshot Snapshot) (float64, error) {
	o.mu.RLock()
	fn := o.fn
	o.mu.RUnlock()

	dict, err := snapshotToStarlark(snapshot)
	if err != nil {
		return 0, err
	}

	thread := &starlark.Thread{Name: "planward-oracle"}
	result, err := starlark.Call(thread, fn, starlark.Tuple{dict}, nil)
	if err != nil {
		return 0, fmt.Errorf("starlark oracle call failed: %w", err)
	}

	return starlarkScalar(result)
}

// snapshotToStarlark builds the dict argument: fact keys map to value
// name strings, auxiliary keys to floats. Insertion order follows the
// snapshot's order.
func snapshotToStarlark(snapshot Snapshot) (*starlark.Dict, error) {
	dict := starlark.NewDict(len(snapshot.Facts) + len(snapshot.Aux))
	for _, f := range snapshot.Facts {
		if err := dict.SetKey(starlark.String(f.Key), starlark.String(f.Value)); err != nil {
			return nil, fmt.Errorf("failed to build snapshot dict: %w", err)
		}
	}
	for _, a := range snapshot.Aux {
		if err := dict.SetKey(starlark.String(a.Key), starlark.Float(a.Value)); err != nil {
			return nil, fmt.Errorf("failed to build snapshot dict: %w", err)
		}
	}
	return dict, nil
}

// starlarkScalar converts the script's return value to a float64.
func starlarkScalar(v starlark.Value) (float64, error) {
	switch val := v.(type) {
	case starlark.Float:
		return float64(val), nil
	case starlark.Int:
		f, ok := starlark.AsFloat(val)
		if !ok {
			return 0, fmt.Errorf("oracle returned an integer out of float range")
		}
		return f, nil
	default:
		return 0, fmt.Errorf("oracle returned %s, want a number", v.Type())
	}
}
