// Package task defines the finite-domain planning task model consumed by
// the heuristic engine: variables with named value domains, ground
// operators with precondition and effect facts, an initial state, and a
// conjunctive goal.
//
// Tasks are loaded from YAML documents, validated, and compiled into an
// index-resolved immutable form. A compiled Task is safe for concurrent
// readers; states are plain value-index slices passed by snapshot.
package task
