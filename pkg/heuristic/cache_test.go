package heuristic

import (
	"testing"

	"github.com/planward/planward/pkg/task"
)

func TestFingerprint_IdenticalStates(t *testing.T) {
	a := task.State{0, 3, 1, 2}
	b := task.State{0, 3, 1, 2}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("Identical assignments must produce identical fingerprints")
	}
}

func TestFingerprint_DifferingStates(t *testing.T) {
	a := task.State{0, 3, 1, 2}
	b := task.State{0, 3, 2, 2}
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("Differing assignments should not collide")
	}
}

func TestFingerprint_PositionSensitive(t *testing.T) {
	a := task.State{0, 1}
	b := task.State{1, 0}
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("Swapped values across variables should not collide")
	}
}

func TestCache_GetPut(t *testing.T) {
	c := newResultCache(10)

	if _, ok := c.get(42); ok {
		t.Error("Empty cache should miss")
	}
	c.put(42, 7)
	v, ok := c.get(42)
	if !ok || v != 7 {
		t.Errorf("Expected hit with value 7, got %d (hit=%v)", v, ok)
	}

	hits, misses := c.stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Expected 1 hit / 1 miss, got %d / %d", hits, misses)
	}
}

func TestCache_ClearsWhenFull(t *testing.T) {
	c := newResultCache(2)
	c.put(1, 10)
	c.put(2, 20)
	if c.len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", c.len())
	}

	// Inserting past the bound drops everything first.
	c.put(3, 30)
	if c.len() != 1 {
		t.Errorf("Expected 1 entry after clearing eviction, got %d", c.len())
	}
	if _, ok := c.get(1); ok {
		t.Error("Old entries should be gone after eviction")
	}
	if v, ok := c.get(3); !ok || v != 30 {
		t.Error("The newly inserted entry should survive eviction")
	}
}

func TestCache_StoresDeadEnd(t *testing.T) {
	c := newResultCache(10)
	c.put(99, DeadEnd)
	v, ok := c.get(99)
	if !ok || v != DeadEnd {
		t.Errorf("Expected cached dead-end sentinel, got %d (hit=%v)", v, ok)
	}
}
