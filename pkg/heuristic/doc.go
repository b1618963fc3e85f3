// Package heuristic estimates the remaining cost from a state to the
// goal by propagating costs through a delete-relaxed model of the task.
//
// An Engine owns a static arena of propositions and unary operators
// built once from the task. Each Compute call runs a Dijkstra-style
// forward propagation (additive or max mode), extracts a relaxed plan
// backward from the goal, and reports the operators that are both in
// the plan and immediately applicable as "preferred" through a side
// channel. Optionally the structural value is combined with a score
// from an external oracle (see the oracle package), results are
// memoized by state fingerprint, and a bounded lookahead explorer
// probes successor states to bias the preferred set.
//
// An Engine instance is not safe for concurrent Compute calls; use one
// instance per goroutine.
package heuristic
