package heuristic

import (
	"github.com/planward/planward/pkg/task"
)

// FNV-1a 64-bit parameters.
const (
	fnvOffset = 1469598103934665603
	fnvPrime  = 1099511628211
)

// Fingerprint computes an order-sensitive 64-bit summary of a state's
// full assignment. Identical assignments always collide; differing
// assignments colliding would be a correctness bug in callers that key
// on it, so the value mixes both the variable position and its value.
func Fingerprint(s task.State) uint64 {
	h := uint64(fnvOffset)
	for varID, val := range s {
		x := uint64(val) + 0x9e3779b97f4a7c15 + uint64(varID)<<1
		h ^= x
		h *= fnvPrime
	}
	return h
}

// resultCache memoizes heuristic values by state fingerprint. Eviction
// is whole-cache: once the entry count exceeds the bound, everything is
// dropped. Throughput only; the engine is correct without it.
type resultCache struct {
	maxEntries int
	entries    map[uint64]int

	hits   uint64
	misses uint64
}

func newResultCache(maxEntries int) *resultCache {
	return &resultCache{
		maxEntries: maxEntries,
		entries:    make(map[uint64]int),
	}
}

// get looks up the cached value for a fingerprint.
func (c *resultCache) get(fp uint64) (int, bool) {
	v, ok := c.entries[fp]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// put stores a value, clearing the whole cache first if it is full.
func (c *resultCache) put(fp uint64, value int) {
	if len(c.entries) >= c.maxEntries {
		c.entries = make(map[uint64]int)
	}
	c.entries[fp] = value
}

// stats returns hit and miss counts since construction.
func (c *resultCache) stats() (hits, misses uint64) {
	return c.hits, c.misses
}

// len returns the current number of entries.
func (c *resultCache) len() int {
	return len(c.entries)
}
