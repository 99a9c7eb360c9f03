package irt

import (
	"math"
	"testing"
)

func TestProbabilityAtDifficulty(t *testing.T) {
	// theta == b → exactly 50% regardless of discrimination
	for _, tt := range []struct{ theta, a float64 }{
		{0, 1.0},
		{2.5, 0.5},
		{-3.0, 4.0},
		{100, 1.2},
	} {
		got := Probability(tt.theta, tt.a, tt.theta)
		if math.Abs(got-0.5) > 1e-9 {
			t.Errorf("Probability(%f, %f, %f) = %f, want 0.5", tt.theta, tt.a, tt.theta, got)
		}
	}
}

func TestProbabilityMonotonicInTheta(t *testing.T) {
	prev := -1.0
	for theta := -6.0; theta <= 6.0; theta += 0.25 {
		p := Probability(theta, 1.3, 0.5)
		if p < prev {
			t.Errorf("Probability not monotonic at theta=%f: %f < %f", theta, p, prev)
		}
		prev = p
	}
}

func TestProbabilityBounds(t *testing.T) {
	for _, theta := range []float64{-100, -10, -1, 0, 1, 10, 100} {
		for _, b := range []float64{-100, 0, 100} {
			p := Probability(theta, 2.0, b)
			if p < 0 || p > 1 {
				t.Errorf("Probability(%f, 2, %f) = %f, out of [0,1]", theta, b, p)
			}
			if math.IsNaN(p) || math.IsInf(p, 0) {
				t.Errorf("Probability(%f, 2, %f) = %f, not finite", theta, b, p)
			}
		}
	}
}

func TestProbabilityExtremes(t *testing.T) {
	// Extreme ability saturates toward 1 without overflow
	got := Probability(100, 1.0, 0)
	if got < 1.0-1e-3 {
		t.Errorf("Probability(100, 1, 0) = %f, want ~1", got)
	}

	got = Probability(-100, 1.0, 0)
	if got > 1e-3 {
		t.Errorf("Probability(-100, 1, 0) = %f, want ~0", got)
	}
}

func TestProbabilitySteeperWithDiscrimination(t *testing.T) {
	// Higher discrimination → larger separation between low and high ability
	lowA := Probability(1, 0.5, 0) - Probability(-1, 0.5, 0)
	highA := Probability(1, 2.0, 0) - Probability(-1, 2.0, 0)
	if highA <= lowA {
		t.Errorf("separation with a=2.0 (%f) should exceed a=0.5 (%f)", highA, lowA)
	}
}
