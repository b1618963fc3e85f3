package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WASMConfig configures a WASM module oracle.
type WASMConfig struct {
	// Path is the compiled WASM module file.
	Path string

	// Function is the exported scoring function. It must have the
	// signature (ptr u32, len u32) -> f64, where ptr/len describe a JSON
	// encoding of the snapshot in the module's linear memory. Defaults to
	// "score".
	Function string

	// MemoryLimitPages caps the module's memory in 64KB pages.
	// Default is 256 pages (16MB).
	MemoryLimitPages uint32
}

// WASMOracle scores snapshots by calling a function exported from a WASM
// module. The module must export malloc and free for argument passing.
type WASMOracle struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	module  api.Module
	memory  api.Memory
	malloc  api.Function
	free    api.Function
	scoreFn api.Function
}

// NewWASMOracle instantiates the module and resolves its exports.
func NewWASMOracle(ctx context.Context, cfg WASMConfig) (*WASMOracle, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("wasm oracle requires a module path")
	}
	if cfg.Function == "" {
		cfg.Function = "score"
	}
	if cfg.MemoryLimitPages == 0 {
		cfg.MemoryLimitPages = 256
	}

	wasmBytes, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wasm module: %w", err)
	}

	runtimeConfig := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.MemoryLimitPages).
		WithCloseOnContextDone(true)

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	module, err := runtime.Instantiate(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASM module: %w", err)
	}

	o := &WASMOracle{
		runtime: runtime,
		module:  module,
	}

	o.memory = module.Memory()
	if o.memory == nil {
		_ = o.Close(ctx)
		return nil, fmt.Errorf("WASM module does not export memory")
	}
	o.malloc = module.ExportedFunction("malloc")
	if o.malloc == nil {
		_ = o.Close(ctx)
		return nil, fmt.Errorf("WASM module does not export malloc function")
	}
	o.free = module.ExportedFunction("free")
	if o.free == nil {
		_ = o.Close(ctx)
		return nil, fmt.Errorf("WASM module does not export free function")
	}
	o.scoreFn = module.ExportedFunction(cfg.Function)
	if o.scoreFn == nil {
		_ = o.Close(ctx)
		return nil, fmt.Errorf("WASM module does not export %s function", cfg.Function)
	}

	return o, nil
}

// Score implements Oracle. The snapshot is JSON-encoded into the
// module's linear memory and the exported function returns the score as
// an f64.
func (o *WASMOracle) Score(ctx context.Context, snapshot Snapshot) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	allocResult, err := o.malloc.Call(ctx, uint64(len(payload)))
	if err != nil {
		return 0, fmt.Errorf("wasm malloc failed: %w", err)
	}
	ptr := uint32(allocResult[0])
	defer func() {
		_, _ = o.free.Call(ctx, uint64(ptr))
	}()

	if !o.memory.Write(ptr, payload) {
		return 0, fmt.Errorf("failed to write snapshot to WASM memory")
	}

	results, err := o.scoreFn.Call(ctx, uint64(ptr), uint64(len(payload)))
	if err != nil {
		return 0, fmt.Errorf("wasm score call failed: %w", err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("wasm score returned %d results, want 1", len(results))
	}

	return api.DecodeF64(results[0]), nil
}

// Close releases the module and runtime.
func (o *WASMOracle) Close(ctx context.Context) error {
	if o.module != nil {
		if err := o.module.Close(ctx); err != nil {
			return fmt.Errorf("failed to close WASM module: %w", err)
		}
		o.module = nil
	}
	if o.runtime != nil {
		if err := o.runtime.Close(ctx); err != nil {
			return fmt.Errorf("failed to close WASM runtime: %w", err)
		}
		o.runtime = nil
	}
	return nil
}
