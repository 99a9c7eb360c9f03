package psychometrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/talentlens/backend/internal/models"
)

func fptr(v float64) *float64 { return &v }

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.ValidityStatus
		want     bool
	}{
		{models.StatusProbation, models.StatusActive, true},
		{models.StatusProbation, models.StatusFlaggedForReview, true},
		{models.StatusProbation, models.StatusRetired, true},
		{models.StatusActive, models.StatusFlaggedForReview, true},
		{models.StatusActive, models.StatusRetired, true},
		{models.StatusActive, models.StatusProbation, false},
		{models.StatusFlaggedForReview, models.StatusActive, true},
		{models.StatusFlaggedForReview, models.StatusRetired, true},
		{models.StatusFlaggedForReview, models.StatusProbation, false},
		{models.StatusRetired, models.StatusActive, true},
		{models.StatusRetired, models.StatusProbation, false},
		{models.StatusRetired, models.StatusFlaggedForReview, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidateManualTransition(t *testing.T) {
	// Same-status overrides are rejected outright.
	if err := ValidateManualTransition(models.StatusActive, models.StatusActive, fptr(0.5)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("same-status transition should fail, got %v", err)
	}

	// Disallowed edge.
	if err := ValidateManualTransition(models.StatusActive, models.StatusProbation, fptr(0.5)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ACTIVE -> PROBATION should fail, got %v", err)
	}

	// Plain allowed edge.
	if err := ValidateManualTransition(models.StatusFlaggedForReview, models.StatusActive, fptr(0.15)); err != nil {
		t.Errorf("FLAGGED_FOR_REVIEW -> ACTIVE should succeed, got %v", err)
	}
}

func TestRetiredReactivation(t *testing.T) {
	tests := []struct {
		name           string
		discrimination *float64
		wantErr        bool
	}{
		{"negative discrimination blocked", fptr(-0.1), true},
		{"unknown discrimination blocked", nil, true},
		{"zero discrimination allowed", fptr(0.0), false},
		{"positive discrimination allowed", fptr(0.35), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManualTransition(models.StatusRetired, models.StatusActive, tt.discrimination)
			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected reactivation to succeed, got %v", err)
			}
		})
	}
}

func TestEvaluateAutomaticBelowGate(t *testing.T) {
	// Below 50 responses, nothing moves no matter how bad the metrics look.
	_, _, moved := EvaluateAutomatic(models.StatusProbation, models.MinResponsesForStats-1, fptr(-0.5), models.DiscriminationFlagNegative, models.DifficultyFlagTooHard)
	if moved {
		t.Error("items below the response gate must never transition automatically")
	}
}

func TestEvaluateAutomaticRetiresNegative(t *testing.T) {
	for _, from := range []models.ValidityStatus{models.StatusProbation, models.StatusActive, models.StatusFlaggedForReview} {
		to, reason, moved := EvaluateAutomatic(from, 120, fptr(-0.2), models.DiscriminationFlagNegative, models.DifficultyFlagNone)
		if !moved || to != models.StatusRetired {
			t.Errorf("from %s: expected auto-retirement, got %s moved=%v", from, to, moved)
		}
		if !strings.HasPrefix(reason, "auto-retired") {
			t.Errorf("from %s: unexpected reason %q", from, reason)
		}
	}
}

func TestEvaluateAutomaticNeverActivatesNegative(t *testing.T) {
	// A negative item can only retire; it must never be promoted.
	to, _, moved := EvaluateAutomatic(models.StatusProbation, 200, fptr(-0.05), models.DiscriminationFlagNegative, models.DifficultyFlagNone)
	if moved && to == models.StatusActive {
		t.Error("negative discrimination must never lead to ACTIVE")
	}
}

func TestEvaluateAutomaticFlags(t *testing.T) {
	tests := []struct {
		name     string
		from     models.ValidityStatus
		discFlag models.DiscriminationFlag
		diffFlag models.DifficultyFlag
	}{
		{"probation critical", models.StatusProbation, models.DiscriminationFlagCritical, models.DifficultyFlagNone},
		{"probation warning", models.StatusProbation, models.DiscriminationFlagWarning, models.DifficultyFlagNone},
		{"probation too easy", models.StatusProbation, models.DiscriminationFlagNone, models.DifficultyFlagTooEasy},
		{"active too hard", models.StatusActive, models.DiscriminationFlagNone, models.DifficultyFlagTooHard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, reason, moved := EvaluateAutomatic(tt.from, 80, fptr(0.2), tt.discFlag, tt.diffFlag)
			if !moved || to != models.StatusFlaggedForReview {
				t.Errorf("expected FLAGGED_FOR_REVIEW, got %s moved=%v", to, moved)
			}
			if !strings.HasPrefix(reason, "auto-flagged") {
				t.Errorf("unexpected reason %q", reason)
			}
		})
	}
}

func TestEvaluateAutomaticActivatesCleanProbation(t *testing.T) {
	to, reason, moved := EvaluateAutomatic(models.StatusProbation, 75, fptr(0.42), models.DiscriminationFlagNone, models.DifficultyFlagNone)
	if !moved || to != models.StatusActive {
		t.Fatalf("expected activation, got %s moved=%v", to, moved)
	}
	if !strings.HasPrefix(reason, "auto-activated") {
		t.Errorf("unexpected reason %q", reason)
	}

	// Clean but weak discrimination stays on probation.
	_, _, moved = EvaluateAutomatic(models.StatusProbation, 75, fptr(0.27), models.DiscriminationFlagNone, models.DifficultyFlagNone)
	if moved {
		t.Error("discrimination below the activation bar should not promote")
	}
}

func TestEvaluateAutomaticLeavesFlaggedAndRetiredAlone(t *testing.T) {
	// Clearing a review flag is an admin decision.
	_, _, moved := EvaluateAutomatic(models.StatusFlaggedForReview, 90, fptr(0.5), models.DiscriminationFlagNone, models.DifficultyFlagNone)
	if moved {
		t.Error("FLAGGED_FOR_REVIEW should not clear automatically")
	}

	// Retired items are out of scope for the automatic policy entirely.
	_, _, moved = EvaluateAutomatic(models.StatusRetired, 90, fptr(0.5), models.DiscriminationFlagNone, models.DifficultyFlagNone)
	if moved {
		t.Error("RETIRED items must not move automatically")
	}
}
