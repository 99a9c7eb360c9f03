package psychometrics

import (
	"math"
	"testing"

	"github.com/talentlens/backend/internal/models"
)

func TestCronbachAlpha(t *testing.T) {
	tests := []struct {
		name   string
		matrix [][]float64
		want   float64
		ok     bool
	}{
		{
			name:   "perfectly consistent items",
			matrix: [][]float64{{1, 1}, {1, 1}, {0, 0}, {0, 0}},
			want:   1.0,
			ok:     true,
		},
		{
			name:   "uncorrelated items",
			matrix: [][]float64{{1, 1}, {1, 0}, {0, 1}, {0, 0}},
			want:   0.0,
			ok:     true,
		},
		{
			name:   "partially consistent items",
			matrix: [][]float64{{1, 1}, {1, 0}, {0, 0}},
			want:   2.0 / 3.0,
			ok:     true,
		},
		{
			name:   "single item undefined",
			matrix: [][]float64{{1}, {0}},
			ok:     false,
		},
		{
			name:   "no respondents undefined",
			matrix: nil,
			ok:     false,
		},
		{
			name:   "zero total variance undefined",
			matrix: [][]float64{{1, 0}, {1, 0}, {1, 0}},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CronbachAlpha(tt.matrix)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("alpha = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlphaIfDeleted(t *testing.T) {
	// Columns 0 and 1 move together; column 2 is noise. Dropping the noise
	// column should raise alpha, dropping a consistent column should sink it.
	matrix := [][]float64{
		{1, 1, 0},
		{1, 1, 1},
		{0, 0, 0},
		{0, 0, 1},
	}

	full, ok := CronbachAlpha(matrix)
	if !ok {
		t.Fatal("full alpha should be defined")
	}
	if math.Abs(full-0.6) > 1e-9 {
		t.Fatalf("full alpha = %v, want 0.6", full)
	}

	deleted := AlphaIfDeleted(matrix)
	if len(deleted) != 3 {
		t.Fatalf("expected alpha-if-deleted for all 3 items, got %d", len(deleted))
	}
	if math.Abs(deleted[2]-1.0) > 1e-9 {
		t.Errorf("dropping the noise item should give alpha 1.0, got %v", deleted[2])
	}
	if deleted[0] >= full {
		t.Errorf("dropping a consistent item should lower alpha: %v >= %v", deleted[0], full)
	}
}

func TestAlphaIfDeletedShortScale(t *testing.T) {
	// A two-item scale cannot support deletion analysis.
	matrix := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	if got := AlphaIfDeleted(matrix); got != nil {
		t.Errorf("expected nil for a 2-item scale, got %v", got)
	}
}

func TestReliabilityStatusFor(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		alpha *float64
		want  models.ReliabilityStatus
	}{
		{nil, models.ReliabilityInsufficientData},
		{f(0.85), models.ReliabilityReliable},
		{f(0.72), models.ReliabilityReliable},
		{f(0.7), models.ReliabilityReliable},
		{f(0.65), models.ReliabilityAcceptable},
		{f(0.6), models.ReliabilityAcceptable},
		{f(0.59), models.ReliabilityUnreliable},
		{f(-0.2), models.ReliabilityUnreliable},
	}

	for _, tt := range tests {
		if got := ReliabilityStatusFor(tt.alpha); got != tt.want {
			t.Errorf("ReliabilityStatusFor(%v) = %v, want %v", tt.alpha, got, tt.want)
		}
	}
}

func TestDeletionRecommendation(t *testing.T) {
	tests := []struct {
		improvement float64
		want        string
	}{
		{0.08, "strongly consider removing this item"},
		{0.05, "strongly consider removing this item"},
		{0.049, "consider revising this item"},
		{0.02, "consider revising this item"},
		{0.019, "minor impact"},
		{0.0, "minor impact"},
		// An item whose deletion would lower alpha (e.g. 0.69 against a
		// scale at 0.72) is never a removal candidate.
		{-0.03, "minor impact"},
	}

	for _, tt := range tests {
		if got := DeletionRecommendation(tt.improvement); got != tt.want {
			t.Errorf("DeletionRecommendation(%v) = %q, want %q", tt.improvement, got, tt.want)
		}
	}
}
