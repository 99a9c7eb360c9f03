package psychometrics

import (
	"math"
	"testing"

	"github.com/talentlens/backend/internal/models"
)

func TestDifficultyIndex(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"all correct", []float64{1, 1, 1, 1}, 1.0},
		{"mixed", []float64{1, 0, 1, 0}, 0.5},
		{"partial credit", []float64{0.25, 0.75}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DifficultyIndex(tt.scores)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DifficultyIndex(%v) = %v, want %v", tt.scores, got, tt.want)
			}
		})
	}
}

func TestDifficultyFlagFor(t *testing.T) {
	tests := []struct {
		index float64
		want  models.DifficultyFlag
	}{
		{0.1, models.DifficultyFlagTooHard},
		{0.19, models.DifficultyFlagTooHard},
		{0.2, models.DifficultyFlagNone}, // boundary is inclusive on the OK side
		{0.5, models.DifficultyFlagNone},
		{0.9, models.DifficultyFlagNone},
		{0.91, models.DifficultyFlagTooEasy},
	}

	for _, tt := range tests {
		if got := DifficultyFlagFor(tt.index); got != tt.want {
			t.Errorf("DifficultyFlagFor(%v) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestPointBiserial(t *testing.T) {
	// Item scores perfectly aligned with rest scores give r = 1.
	item := []float64{0, 0, 1, 1}
	rest := []float64{1, 2, 3, 4}
	if got := PointBiserial(item, rest); math.Abs(got-0.894427) > 1e-4 {
		t.Errorf("PointBiserial = %v, want ~0.894", got)
	}

	// Reversed alignment flips the sign.
	reversed := []float64{4, 3, 2, 1}
	pos := PointBiserial(item, rest)
	neg := PointBiserial(item, reversed)
	if math.Abs(pos+neg) > 1e-9 {
		t.Errorf("expected symmetric correlation, got %v and %v", pos, neg)
	}

	// Zero variance on either side yields 0 rather than NaN.
	if got := PointBiserial([]float64{1, 1, 1}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("constant item should give 0, got %v", got)
	}
	if got := PointBiserial([]float64{0, 1, 0}, []float64{2, 2, 2}); got != 0 {
		t.Errorf("constant rest should give 0, got %v", got)
	}
	if got := PointBiserial(nil, nil); got != 0 {
		t.Errorf("empty input should give 0, got %v", got)
	}
}

func TestRestScoresExcludesItem(t *testing.T) {
	scores := [][]float64{
		{1, 0, 1},
		{0, 1, 1},
	}
	rest := RestScores(scores, 2)
	if rest[0] != 1 || rest[1] != 1 {
		t.Errorf("rest scores = %v, want [1 1]", rest)
	}

	rest = RestScores(scores, 0)
	if rest[0] != 1 || rest[1] != 2 {
		t.Errorf("rest scores = %v, want [1 2]", rest)
	}
}

func TestDiscriminationFlagFor(t *testing.T) {
	tests := []struct {
		rpb  float64
		want models.DiscriminationFlag
	}{
		{-0.3, models.DiscriminationFlagNegative},
		{-0.001, models.DiscriminationFlagNegative},
		{0.0, models.DiscriminationFlagCritical},
		{0.09, models.DiscriminationFlagCritical},
		{0.1, models.DiscriminationFlagWarning},
		{0.24, models.DiscriminationFlagWarning},
		{0.25, models.DiscriminationFlagNone},
		{0.6, models.DiscriminationFlagNone},
	}

	for _, tt := range tests {
		if got := DiscriminationFlagFor(tt.rpb); got != tt.want {
			t.Errorf("DiscriminationFlagFor(%v) = %v, want %v", tt.rpb, got, tt.want)
		}
	}
}

func TestDistractorEfficiency(t *testing.T) {
	selections := map[string]int{"a": 50, "b": 30, "c": 20, "d": 0}
	rates := DistractorEfficiency(selections, 100, "a")

	if _, ok := rates["a"]; ok {
		t.Error("correct option should be excluded from distractor rates")
	}
	if rates["b"] != 0.3 || rates["c"] != 0.2 || rates["d"] != 0 {
		t.Errorf("unexpected rates: %v", rates)
	}

	if got := DistractorEfficiency(selections, 0, "a"); got != nil {
		t.Errorf("zero responses should return nil, got %v", got)
	}
}

func TestDistractorRecommendations(t *testing.T) {
	recs := DistractorRecommendations(map[string]float64{"b": 0.3, "d": 0})
	if len(recs) != 1 {
		t.Fatalf("expected one recommendation, got %d", len(recs))
	}

	if recs := DistractorRecommendations(map[string]float64{"b": 0.3, "c": 0.1}); len(recs) != 0 {
		t.Errorf("functioning distractors should produce no recommendations, got %v", recs)
	}
}

func TestSeverityOrdering(t *testing.T) {
	negative := Severity(models.DiscriminationFlagNegative, models.DifficultyFlagNone)
	critical := Severity(models.DiscriminationFlagCritical, models.DifficultyFlagNone)
	warning := Severity(models.DiscriminationFlagWarning, models.DifficultyFlagNone)
	clean := Severity(models.DiscriminationFlagNone, models.DifficultyFlagNone)

	if !(negative > critical && critical > warning && warning > clean) {
		t.Errorf("severity ordering broken: %d %d %d %d", negative, critical, warning, clean)
	}

	// A difficulty extreme raises severity but never above the next
	// discrimination band.
	warnHard := Severity(models.DiscriminationFlagWarning, models.DifficultyFlagTooHard)
	if warnHard <= warning {
		t.Error("difficulty flag should raise severity")
	}
	if warnHard > critical {
		t.Error("difficulty flag should not outrank a worse discrimination band")
	}
}
