package irt

import (
	"math"
	"testing"
)

// fiveItems is a small fixed item bank used across estimator tests.
var (
	fiveA = []float64{1.0, 1.2, 0.8, 1.5, 1.0}
	fiveB = []float64{-1.5, -0.5, 0.0, 0.5, 1.5}
)

func TestEstimateThetaAllCorrect(t *testing.T) {
	responses := []bool{true, true, true, true, true}
	got := EstimateTheta(responses, fiveA, fiveB)
	if got != MaxTheta {
		t.Errorf("EstimateTheta(all correct) = %f, want %f", got, MaxTheta)
	}
}

func TestEstimateThetaAllIncorrect(t *testing.T) {
	responses := []bool{false, false, false, false, false}
	got := EstimateTheta(responses, fiveA, fiveB)
	if got != MinTheta {
		t.Errorf("EstimateTheta(all incorrect) = %f, want %f", got, MinTheta)
	}
}

func TestEstimateThetaMonotonicInCorrectCount(t *testing.T) {
	// More correct responses (easiest-first) must never lower the estimate
	prev := math.Inf(-1)
	for correct := 0; correct <= 5; correct++ {
		responses := make([]bool, 5)
		for i := 0; i < correct; i++ {
			responses[i] = true
		}
		got := EstimateTheta(responses, fiveA, fiveB)
		if got < prev {
			t.Errorf("EstimateTheta with %d correct = %f, below previous %f", correct, got, prev)
		}
		prev = got
	}
}

func TestEstimateThetaMixedPattern(t *testing.T) {
	// Correct on easy items, wrong on hard: ability should be moderate
	responses := []bool{true, true, true, false, false}
	got := EstimateTheta(responses, fiveA, fiveB)
	if got <= MinTheta || got >= MaxTheta {
		t.Errorf("EstimateTheta(mixed) = %f, want interior estimate", got)
	}
}

func TestEstimateThetaEmpty(t *testing.T) {
	if got := EstimateTheta(nil, nil, nil); got != 0 {
		t.Errorf("EstimateTheta(empty) = %f, want 0", got)
	}
}

func TestEstimateBRecoversDifficulty(t *testing.T) {
	// Respondents spread across the ability range; responses follow the
	// deterministic rule "correct iff theta > trueB", which a logistic fit
	// should center near trueB.
	trueB := 0.5
	var thetas []float64
	var responses []bool
	for theta := -3.0; theta <= 3.0; theta += 0.1 {
		thetas = append(thetas, theta)
		responses = append(responses, theta > trueB)
	}

	got := EstimateB(responses, 1.0, thetas, 0.0)
	if math.Abs(got-trueB) > 0.3 {
		t.Errorf("EstimateB = %f, want within 0.3 of %f", got, trueB)
	}
}

func TestEstimateBAllCorrectClamps(t *testing.T) {
	thetas := []float64{-1, 0, 1}
	got := EstimateB([]bool{true, true, true}, 1.0, thetas, 0.0)
	if got != MinTheta {
		t.Errorf("EstimateB(all correct) = %f, want %f (trivially easy)", got, MinTheta)
	}
}

func TestEstimateARecoversDiscrimination(t *testing.T) {
	// Sharp ability split at b → strongly discriminating item
	var thetas []float64
	var responses []bool
	for theta := -3.0; theta <= 3.0; theta += 0.1 {
		thetas = append(thetas, theta)
		responses = append(responses, theta > 0)
	}

	got := EstimateA(responses, 1.0, 0.0, thetas)
	if got < 1.5 {
		t.Errorf("EstimateA(sharp split) = %f, want strongly discriminating (>= 1.5)", got)
	}
	if got > MaxDiscrimination {
		t.Errorf("EstimateA = %f, above clamp %f", got, MaxDiscrimination)
	}
}

func TestEstimateANoSignalStaysAtInitial(t *testing.T) {
	// Every respondent sits exactly at the item's difficulty, so responses
	// carry zero information about the slope. The estimate must not move.
	thetas := make([]float64, 60)
	responses := make([]bool, 60)
	for i := range responses {
		responses[i] = i%2 == 0
	}

	initial := 1.0
	got := EstimateA(responses, initial, 0.0, thetas)
	if got != initial {
		t.Errorf("EstimateA(no signal) = %f, want initial %f", got, initial)
	}
}

func TestEstimateAUncorrelatedStaysInBounds(t *testing.T) {
	// Responses uncorrelated with ability must drift toward the lower clamp,
	// never run away.
	var thetas []float64
	var responses []bool
	for i := 0; i < 60; i++ {
		thetas = append(thetas, -3.0+float64(i)*0.1)
		responses = append(responses, i%2 == 0)
	}

	got := EstimateA(responses, 1.0, 0.0, thetas)
	if got < MinDiscrimination || got > MaxDiscrimination {
		t.Errorf("EstimateA = %f, outside [%f, %f]", got, MinDiscrimination, MaxDiscrimination)
	}
}

func TestEstimateABoundsRespected(t *testing.T) {
	got := EstimateA(nil, 10.0, 0.0, nil)
	if got != MaxDiscrimination {
		t.Errorf("EstimateA(initial=10) = %f, want clamped to %f", got, MaxDiscrimination)
	}
}
