package irt

import "math"

// ResponseMatrix is the transient input to one calibration run: a dense
// dichotomous matrix with one row per respondent and one column per item,
// already filtered of extreme items. It is owned by the run and discarded
// after use.
type ResponseMatrix struct {
	QuestionIDs []int64
	Responses   [][]bool // [respondent][item]
}

func (m *ResponseMatrix) RespondentCount() int { return len(m.Responses) }
func (m *ResponseMatrix) ItemCount() int       { return len(m.QuestionIDs) }

// column extracts one item's response vector across all respondents.
func (m *ResponseMatrix) column(item int) []bool {
	col := make([]bool, len(m.Responses))
	for j, row := range m.Responses {
		col[j] = row[item]
	}
	return col
}

// ItemParameters holds the calibrated 2PL parameters for one item.
type ItemParameters struct {
	QuestionID     int64
	Discrimination float64 // a
	Difficulty     float64 // b
}

// CalibrationResult is the output of one joint calibration pass.
type CalibrationResult struct {
	Items  []ItemParameters
	Thetas []float64 // one per respondent row
	Cycles int
}

// Calibration loop tuning. The cycle cap and tolerance bound the alternating
// pass; neither is a load-bearing contract.
const (
	maxCalibrationCycles = 10
	calibrationTolerance = 0.01
)

// Calibrate runs the alternating joint maximum-likelihood loop: estimate all
// respondent thetas holding item parameters fixed, then all item parameters
// holding thetas fixed, until parameter change falls below tolerance or the
// cycle cap is reached. Returns nil for an empty matrix; callers treat that
// as insufficient data.
//
// Two constraints keep the latent scale identified. Abilities are scored
// unit-weighted: feeding each cycle's slope estimates back into the abilities
// they were fit against inflates a cycle over cycle until it pins at the
// clamp. And each item is fit against rest-abilities scored from the other
// items only, the same self-exclusion as the rest-score point-biserial.
func Calibrate(m *ResponseMatrix) *CalibrationResult {
	if m == nil || m.ItemCount() == 0 || m.RespondentCount() == 0 {
		return nil
	}

	k := m.ItemCount()
	n := m.RespondentCount()

	// Start items at a=1 and b at the logit of the observed miss rate, a
	// standard classical starting point for the 2PL.
	a := make([]float64, k)
	b := make([]float64, k)
	for i := 0; i < k; i++ {
		p := proportionCorrect(m, i)
		a[i] = 1.0
		b[i] = clamp(math.Log((1.0-p)/p), MinTheta, MaxTheta)
	}

	unit := make([]float64, k)
	for i := range unit {
		unit[i] = 1.0
	}

	thetas := make([]float64, n)
	cycles := 0
	for cycle := 0; cycle < maxCalibrationCycles; cycle++ {
		cycles = cycle + 1

		for j := 0; j < n; j++ {
			thetas[j] = EstimateTheta(m.Responses[j], unit, b)
		}
		standardize(thetas)

		maxChange := 0.0
		for i := 0; i < k; i++ {
			col := m.column(i)
			rest := restAbilities(m, i, b, thetas)
			newB := EstimateB(col, a[i], rest, b[i])
			newA := EstimateA(col, a[i], newB, rest)

			if d := math.Abs(newB - b[i]); d > maxChange {
				maxChange = d
			}
			if d := math.Abs(newA - a[i]); d > maxChange {
				maxChange = d
			}
			a[i], b[i] = newA, newB
		}

		if maxChange < calibrationTolerance {
			break
		}
	}

	items := make([]ItemParameters, k)
	for i := 0; i < k; i++ {
		items[i] = ItemParameters{
			QuestionID:     m.QuestionIDs[i],
			Discrimination: a[i],
			Difficulty:     b[i],
		}
	}
	return &CalibrationResult{Items: items, Thetas: thetas, Cycles: cycles}
}

// restAbilities scores every respondent against all items except the one
// being fit, unit-weighted against the current difficulties, standardized.
// A single-item matrix has nothing to exclude and reuses the full vector.
func restAbilities(m *ResponseMatrix, item int, b []float64, full []float64) []float64 {
	k := m.ItemCount()
	if k == 1 {
		return full
	}

	restB := make([]float64, 0, k-1)
	for i, v := range b {
		if i != item {
			restB = append(restB, v)
		}
	}
	unit := make([]float64, k-1)
	for i := range unit {
		unit[i] = 1.0
	}

	out := make([]float64, m.RespondentCount())
	row := make([]bool, 0, k-1)
	for j, responses := range m.Responses {
		row = row[:0]
		for i, r := range responses {
			if i != item {
				row = append(row, r)
			}
		}
		out[j] = EstimateTheta(row, unit, restB)
	}
	standardize(out)
	return out
}

// standardize rescales the ability vector to mean 0 and unit variance, the
// identification constraint for joint maximum likelihood. A near-constant
// vector is only centered, and every entry stays within the theta bounds.
func standardize(thetas []float64) {
	n := float64(len(thetas))
	if n == 0 {
		return
	}

	var mean float64
	for _, t := range thetas {
		mean += t
	}
	mean /= n

	var variance float64
	for _, t := range thetas {
		d := t - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / n)

	for j, t := range thetas {
		t -= mean
		if sd > minCurvature {
			t /= sd
		}
		thetas[j] = clamp(t, MinTheta, MaxTheta)
	}
}

// proportionCorrect returns item i's marginal proportion-correct, nudged off
// 0 and 1 so its logit stays finite.
func proportionCorrect(m *ResponseMatrix, i int) float64 {
	correct := 0
	for _, row := range m.Responses {
		if row[i] {
			correct++
		}
	}
	p := float64(correct) / float64(len(m.Responses))
	return clamp(p, 0.01, 0.99)
}
