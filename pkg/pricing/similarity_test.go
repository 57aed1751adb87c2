package pricing

import (
	"math"
	"testing"
)

func TestDiceCoefficient(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "claude-opus", "claude-opus", 1},
		{"identical single char", "a", "a", 1},
		{"degenerate left", "a", "abc", 0},
		{"degenerate right", "abc", "b", 0},
		{"both empty treated identical", "", "", 1},
		{"disjoint", "abab", "cdcd", 0},
		{"partial overlap", "night", "nacht", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diceCoefficient(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("diceCoefficient(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDiceCoefficient_Symmetric(t *testing.T) {
	a, b := "claude-sonnet-4-5", "anthropic/claude-sonnet-4-5"
	if diceCoefficient(a, b) != diceCoefficient(b, a) {
		t.Errorf("diceCoefficient is not symmetric for %q / %q", a, b)
	}
}

func TestDiceCoefficient_RepeatedBigrams(t *testing.T) {
	// Multiset semantics: "aaa" has bigrams {aa, aa}, "aa" has {aa}.
	// overlap=1, score = 2*1 / (2+1).
	got := diceCoefficient("aaa", "aa")
	want := 2.0 / 3.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("diceCoefficient(aaa, aa) = %v, want %v", got, want)
	}
}
