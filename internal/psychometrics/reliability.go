package psychometrics

import "github.com/talentlens/backend/internal/models"

// Reliability thresholds (Cronbach's alpha bands).
const (
	AlphaReliableMin   = 0.7
	AlphaAcceptableMin = 0.6

	// Alpha-if-deleted improvement bands for item recommendations.
	RemovalImprovement  = 0.05
	RevisionImprovement = 0.02

	// MinReliabilityItems is the minimum scale length for alpha to be defined.
	MinReliabilityItems = 2
)

// CronbachAlpha computes Cronbach's alpha for a [respondent][item] score
// matrix using population variance throughout. The second return value is
// false when alpha is undefined (fewer than 2 items, no respondents, or zero
// total-score variance).
func CronbachAlpha(matrix [][]float64) (float64, bool) {
	n := len(matrix)
	if n == 0 {
		return 0, false
	}
	k := len(matrix[0])
	if k < MinReliabilityItems {
		return 0, false
	}

	means := make([]float64, k)
	totals := make([]float64, n)
	for j, row := range matrix {
		if len(row) != k {
			return 0, false
		}
		for i, s := range row {
			means[i] += s
			totals[j] += s
		}
	}
	for i := range means {
		means[i] /= float64(n)
	}

	var sumItemVars float64
	for i := 0; i < k; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			d := matrix[j][i] - means[i]
			sum += d * d
		}
		sumItemVars += sum / float64(n)
	}

	var totalMean float64
	for _, t := range totals {
		totalMean += t
	}
	totalMean /= float64(n)

	var totalVar float64
	for _, t := range totals {
		d := t - totalMean
		totalVar += d * d
	}
	totalVar /= float64(n)

	if totalVar == 0 {
		return 0, false
	}

	kf := float64(k)
	return (kf / (kf - 1.0)) * (1.0 - sumItemVars/totalVar), true
}

// AlphaIfDeleted recomputes alpha for each item with that item's column
// removed. Keys are column indexes; entries are omitted where the reduced
// scale no longer supports alpha.
func AlphaIfDeleted(matrix [][]float64) map[int]float64 {
	if len(matrix) == 0 || len(matrix[0]) <= MinReliabilityItems {
		return nil
	}
	k := len(matrix[0])

	out := make(map[int]float64, k)
	for drop := 0; drop < k; drop++ {
		reduced := make([][]float64, len(matrix))
		for j, row := range matrix {
			r := make([]float64, 0, k-1)
			for i, s := range row {
				if i == drop {
					continue
				}
				r = append(r, s)
			}
			reduced[j] = r
		}
		if alpha, ok := CronbachAlpha(reduced); ok {
			out[drop] = alpha
		}
	}
	return out
}

// ReliabilityStatusFor maps an alpha value (or its absence) to the status
// enum. The status is derivable purely from alpha.
func ReliabilityStatusFor(alpha *float64) models.ReliabilityStatus {
	if alpha == nil {
		return models.ReliabilityInsufficientData
	}
	switch {
	case *alpha >= AlphaReliableMin:
		return models.ReliabilityReliable
	case *alpha >= AlphaAcceptableMin:
		return models.ReliabilityAcceptable
	default:
		return models.ReliabilityUnreliable
	}
}

// DeletionRecommendation translates an alpha-if-deleted improvement into
// advisory text. Items below the revision band have minor impact and are not
// removal candidates.
func DeletionRecommendation(improvement float64) string {
	switch {
	case improvement >= RemovalImprovement:
		return "strongly consider removing this item"
	case improvement >= RevisionImprovement:
		return "consider revising this item"
	default:
		return "minor impact"
	}
}
