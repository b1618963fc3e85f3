package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Facts: []Fact{
			{Key: "light", Value: "off"},
		},
		Aux: []AuxField{
			{Key: "h", Value: 3},
		},
	}
}

func newTestBridge(t *testing.T, cfg BridgeConfig) *Bridge {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	b, err := NewBridge(cfg)
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}
	return b
}

func TestBridge_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"plain integer", 7, 7},
		{"round down", 2.4, 2},
		{"round up", 2.6, 3},
		{"round half away", 2.5, 3},
		{"negative clamps to zero", -4.2, 0},
		{"nan falls back", math.NaN(), 0},
		{"positive inf falls back", math.Inf(1), 0},
		{"negative inf falls back", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(t, BridgeConfig{
				Resolver: Static(Func(func(context.Context, Snapshot) (float64, error) {
					return tt.value, nil
				})),
			})
			got, err := b.Score(context.Background(), testSnapshot())
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBridge_FallbackOnOracleError(t *testing.T) {
	b := newTestBridge(t, BridgeConfig{
		Resolver: Static(Func(func(context.Context, Snapshot) (float64, error) {
			return 0, errors.New("boom")
		})),
		Fallback: 5,
	})

	got, err := b.Score(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("Oracle runtime errors must not surface, got: %v", err)
	}
	if got != 5 {
		t.Errorf("Score = %d, want fallback 5", got)
	}

	calls, faults := b.Stats()
	if calls != 1 || faults != 1 {
		t.Errorf("Stats = (%d, %d), want (1, 1)", calls, faults)
	}
}

func TestBridge_RecoversFromPanic(t *testing.T) {
	b := newTestBridge(t, BridgeConfig{
		Resolver: Static(Func(func(context.Context, Snapshot) (float64, error) {
			panic("oracle bug")
		})),
		Fallback: 2,
	})

	got, err := b.Score(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("Panicking oracle must not surface an error, got: %v", err)
	}
	if got != 2 {
		t.Errorf("Score = %d, want fallback 2", got)
	}
}

func TestBridge_ResolutionFailure(t *testing.T) {
	failing := func() (Oracle, error) {
		return nil, errors.New("module not found")
	}

	t.Run("fail fast", func(t *testing.T) {
		b := newTestBridge(t, BridgeConfig{Resolver: failing, FailFast: true})
		if _, err := b.Score(context.Background(), testSnapshot()); err == nil {
			t.Error("Expected resolution error, got nil")
		}
		if b.Ready() {
			t.Error("Bridge must not report ready after resolution failure")
		}
	})

	t.Run("degrade to fallback", func(t *testing.T) {
		b := newTestBridge(t, BridgeConfig{Resolver: failing, Fallback: 9})
		got, err := b.Score(context.Background(), testSnapshot())
		if err != nil {
			t.Fatalf("Expected degraded call, got error: %v", err)
		}
		if got != 9 {
			t.Errorf("Score = %d, want fallback 9", got)
		}
	})
}

func TestBridge_ResolvesOnce(t *testing.T) {
	var resolutions int
	b := newTestBridge(t, BridgeConfig{
		Resolver: func() (Oracle, error) {
			resolutions++
			return Func(func(context.Context, Snapshot) (float64, error) {
				return 1, nil
			}), nil
		},
	})

	for i := 0; i < 3; i++ {
		if _, err := b.Score(context.Background(), testSnapshot()); err != nil {
			t.Fatalf("Score failed: %v", err)
		}
	}
	if resolutions != 1 {
		t.Errorf("Resolver ran %d times, want 1", resolutions)
	}
	if !b.Ready() {
		t.Error("Bridge should report ready after successful resolution")
	}
}

func TestBridge_SnapshotVisibleToOracle(t *testing.T) {
	var seen Snapshot
	b := newTestBridge(t, BridgeConfig{
		Resolver: Static(Func(func(_ context.Context, s Snapshot) (float64, error) {
			seen = s
			return 0, nil
		})),
	})

	snap := Snapshot{
		Facts: []Fact{
			{Key: "a", Value: "x"},
			{Key: "b", Value: "y"},
		},
		Aux: []AuxField{{Key: "h_add", Value: 4}},
	}
	if _, err := b.Score(context.Background(), snap); err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if len(seen.Facts) != 2 || seen.Facts[0].Key != "a" || seen.Facts[1].Key != "b" {
		t.Errorf("Oracle saw facts %v, want ordered a then b", seen.Facts)
	}
	if len(seen.Aux) != 1 || seen.Aux[0].Key != "h_add" || seen.Aux[0].Value != 4 {
		t.Errorf("Oracle saw aux %v, want h_add=4", seen.Aux)
	}
}

func TestBridge_RequiresResolver(t *testing.T) {
	if _, err := NewBridge(BridgeConfig{}); err == nil {
		t.Error("Expected error for missing resolver")
	}
	if _, err := NewBridge(BridgeConfig{
		Resolver: Static(Func(func(context.Context, Snapshot) (float64, error) { return 0, nil })),
		Fallback: -1,
	}); err == nil {
		t.Error("Expected error for negative fallback")
	}
}

func ExampleBridge_Score() {
	b, _ := NewBridge(BridgeConfig{
		Resolver: Static(Func(func(_ context.Context, s Snapshot) (float64, error) {
			return 2.6, nil
		})),
		Logger: zerolog.Nop(),
	})
	v, _ := b.Score(context.Background(), Snapshot{
		Facts: []Fact{{Key: "light", Value: "off"}},
	})
	fmt.Println(v)
	// Output: 3
}
