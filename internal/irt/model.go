package irt

import "math"

// Parameter bounds for the 2PL model. Estimates are clamped to these ranges
// so that degenerate response patterns (all correct, zero signal) settle on
// a bound instead of diverging.
const (
	MinTheta = -4.0
	MaxTheta = 4.0

	MinDiscrimination = 0.1
	MaxDiscrimination = 4.0

	// maxExponent caps the logistic exponent so extreme theta/b values
	// saturate to 0 or 1 instead of overflowing to NaN/Inf.
	maxExponent = 35.0
)

// Probability returns P(correct | theta, a, b) under the two-parameter
// logistic model: 1 / (1 + exp(-a*(theta-b))).
func Probability(theta, a, b float64) float64 {
	x := a * (theta - b)
	if x > maxExponent {
		x = maxExponent
	}
	if x < -maxExponent {
		x = -maxExponent
	}
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
