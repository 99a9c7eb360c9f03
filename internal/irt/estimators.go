package irt

import "math"

// Newton-Raphson settings shared by the three solvers. The iteration cap is
// the only termination guarantee; there is no cancellation mid-loop.
const (
	maxIterations = 50
	convergenceEps = 1e-4

	// maxStep bounds a single Newton update so a flat second derivative
	// cannot fling the estimate across the parameter space.
	maxStep = 1.0

	// minCurvature guards the division when the information is near zero
	// (responses carry no signal at the current estimate).
	minCurvature = 1e-8
)

// EstimateTheta estimates a respondent's latent ability from dichotomous
// responses to items with known parameters. All-correct and all-incorrect
// vectors clamp to MaxTheta / MinTheta rather than diverging.
func EstimateTheta(responses []bool, a, b []float64) float64 {
	if len(responses) == 0 {
		return 0
	}

	theta := 0.0
	for iter := 0; iter < maxIterations; iter++ {
		var grad, info float64
		for i, correct := range responses {
			p := Probability(theta, a[i], b[i])
			u := 0.0
			if correct {
				u = 1.0
			}
			grad += a[i] * (u - p)
			info += a[i] * a[i] * p * (1.0 - p)
		}

		if info < minCurvature {
			// No information left: the estimate is pinned at a bound.
			if grad > 0 {
				return MaxTheta
			}
			if grad < 0 {
				return MinTheta
			}
			return clamp(theta, MinTheta, MaxTheta)
		}

		step := clamp(grad/info, -maxStep, maxStep)
		theta = clamp(theta+step, MinTheta, MaxTheta)

		if math.Abs(step) < convergenceEps {
			break
		}
	}
	return theta
}

// EstimateB estimates an item's difficulty given fixed discrimination and
// per-respondent ability estimates.
func EstimateB(responses []bool, a float64, thetas []float64, initialB float64) float64 {
	if len(responses) == 0 {
		return initialB
	}

	b := clamp(initialB, MinTheta, MaxTheta)
	for iter := 0; iter < maxIterations; iter++ {
		var grad, info float64
		for j, correct := range responses {
			p := Probability(thetas[j], a, b)
			u := 0.0
			if correct {
				u = 1.0
			}
			grad += -a * (u - p)
			info += a * a * p * (1.0 - p)
		}

		if info < minCurvature {
			if grad > 0 {
				return MaxTheta
			}
			if grad < 0 {
				return MinTheta
			}
			return b
		}

		step := clamp(grad/info, -maxStep, maxStep)
		b = clamp(b+step, MinTheta, MaxTheta)

		if math.Abs(step) < convergenceEps {
			break
		}
	}
	return b
}

// EstimateA estimates an item's discrimination given fixed difficulty and
// per-respondent ability estimates. Items with no discriminative signal
// settle near the initial value; the result is always clamped to
// [MinDiscrimination, MaxDiscrimination].
func EstimateA(responses []bool, initialA, b float64, thetas []float64) float64 {
	if len(responses) == 0 {
		return clamp(initialA, MinDiscrimination, MaxDiscrimination)
	}

	a := clamp(initialA, MinDiscrimination, MaxDiscrimination)
	for iter := 0; iter < maxIterations; iter++ {
		var grad, info float64
		for j, correct := range responses {
			p := Probability(thetas[j], a, b)
			u := 0.0
			if correct {
				u = 1.0
			}
			d := thetas[j] - b
			grad += d * (u - p)
			info += d * d * p * (1.0 - p)
		}

		if info < minCurvature {
			return a
		}

		step := clamp(grad/info, -maxStep, maxStep)
		a = clamp(a+step, MinDiscrimination, MaxDiscrimination)

		if math.Abs(step) < convergenceEps {
			break
		}
	}
	return a
}
