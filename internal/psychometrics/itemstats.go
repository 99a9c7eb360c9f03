package psychometrics

import (
	"fmt"
	"math"

	"github.com/talentlens/backend/internal/models"
)

// Classical test-theory thresholds (difficulty index is a p-value: higher
// means easier).
const (
	TooHardThreshold = 0.2
	TooEasyThreshold = 0.9

	DiscriminationCriticalMax = 0.1
	DiscriminationWarningMax  = 0.25
	DiscriminationActiveMin   = 0.3
)

// DifficultyIndex is the arithmetic mean of the item's normalized scores
// (not dichotomized).
func DifficultyIndex(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func DifficultyFlagFor(index float64) models.DifficultyFlag {
	if index < TooHardThreshold {
		return models.DifficultyFlagTooHard
	}
	if index > TooEasyThreshold {
		return models.DifficultyFlagTooEasy
	}
	return models.DifficultyFlagNone
}

// PointBiserial computes the correlation between an item's scores and the
// respondents' rest scores (scale total with the item itself excluded, to
// avoid self-correlation inflation). Returns 0 when either side has zero
// variance.
func PointBiserial(itemScores, restScores []float64) float64 {
	n := len(itemScores)
	if n == 0 || n != len(restScores) {
		return 0
	}

	var meanItem, meanRest float64
	for i := 0; i < n; i++ {
		meanItem += itemScores[i]
		meanRest += restScores[i]
	}
	meanItem /= float64(n)
	meanRest /= float64(n)

	var cov, varItem, varRest float64
	for i := 0; i < n; i++ {
		di := itemScores[i] - meanItem
		dr := restScores[i] - meanRest
		cov += di * dr
		varItem += di * di
		varRest += dr * dr
	}

	if varItem == 0 || varRest == 0 {
		return 0
	}
	return cov / math.Sqrt(varItem*varRest)
}

// RestScores returns, for each respondent, the total across all items minus
// the item at itemIdx. scores is shaped [respondent][item].
func RestScores(scores [][]float64, itemIdx int) []float64 {
	rest := make([]float64, len(scores))
	for j, row := range scores {
		var total float64
		for i, s := range row {
			if i == itemIdx {
				continue
			}
			total += s
		}
		rest[j] = total
	}
	return rest
}

func DiscriminationFlagFor(rpb float64) models.DiscriminationFlag {
	switch {
	case rpb < 0:
		return models.DiscriminationFlagNegative
	case rpb < DiscriminationCriticalMax:
		return models.DiscriminationFlagCritical
	case rpb < DiscriminationWarningMax:
		return models.DiscriminationFlagWarning
	default:
		return models.DiscriminationFlagNone
	}
}

// DistractorEfficiency returns, per non-correct option, the fraction of
// respondents who selected it. selections maps option id to pick count.
func DistractorEfficiency(selections map[string]int, totalResponses int, correctOptionID string) map[string]float64 {
	if totalResponses == 0 {
		return nil
	}
	rates := make(map[string]float64, len(selections))
	for optionID, count := range selections {
		if optionID == correctOptionID {
			continue
		}
		rates[optionID] = float64(count) / float64(totalResponses)
	}
	return rates
}

// DistractorRecommendations surfaces non-functioning distractors (selection
// rate of exactly zero) as advisory text, not hard flags.
func DistractorRecommendations(rates map[string]float64) []string {
	var recs []string
	for optionID, rate := range rates {
		if rate == 0 {
			recs = append(recs, fmt.Sprintf("option %s is never selected; consider replacing this distractor", optionID))
		}
	}
	return recs
}

// Severity ranks an item for the review queue: negative discrimination
// outranks critical, which outranks warning and difficulty extremes.
func Severity(discFlag models.DiscriminationFlag, diffFlag models.DifficultyFlag) int {
	score := 0
	switch discFlag {
	case models.DiscriminationFlagNegative:
		score = 40
	case models.DiscriminationFlagCritical:
		score = 30
	case models.DiscriminationFlagWarning:
		score = 20
	}
	if diffFlag != models.DifficultyFlagNone {
		score += 10
	}
	return score
}
