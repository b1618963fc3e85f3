// Package oracle defines the pluggable cost-oracle boundary of the
// heuristic engine: an Oracle scores a symbolic snapshot of a planning
// state and returns a scalar cost estimate.
//
// The Bridge wraps an Oracle with the calling contract the engine relies
// on: lazy one-shot resolution, serialized invocation, normalization of
// the returned scalar (non-finite values fall back, negative values clamp
// to zero, rounding to the nearest integer), and recovery from oracle
// runtime failures.
//
// Three backends are provided: a Starlark script function, a subprocess
// speaking newline-delimited JSON over stdio, and a WASM module executed
// with wazero. Any other backend can be plugged in by implementing the
// one-method Oracle interface.
package oracle
