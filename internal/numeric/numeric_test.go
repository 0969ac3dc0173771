package numeric

import (
	"math"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{0, 0},
		{-12.5, -12.5},
		{103000, 103000},
		{math.MaxFloat64, math.MaxFloat64},
		{math.SmallestNonzeroFloat64, math.SmallestNonzeroFloat64},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSanitizeAll(t *testing.T) {
	xs := SanitizeAll([]float64{1, math.NaN(), math.Inf(-1), 2})
	want := []float64{1, 0, 0, 2}
	for i := range want {
		if xs[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, xs[i], want[i])
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(175.505); got != 175.51 {
		t.Errorf("Round2(175.505) = %v, want 175.51", got)
	}
	if got := Round2(-0.126); got != -0.13 {
		t.Errorf("Round2(-0.126) = %v, want -0.13", got)
	}
	if got := Round2(math.NaN()); got != 0 {
		t.Errorf("Round2(NaN) = %v, want 0", got)
	}
}
