package psychometrics

import (
	"errors"
	"fmt"

	"github.com/talentlens/backend/internal/models"
)

var (
	// ErrNotFound means recalculation or lookup was requested for an item or
	// competency with no data at all.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition rejects a manual status change the machine does
	// not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentModification is surfaced only after optimistic-lock
	// retries are exhausted.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// allowedTransitions is the full transition table, covering both automatic
// and manual moves. RETIRED→ACTIVE is manual reactivation and carries an
// extra discrimination precondition checked in ValidateManualTransition.
var allowedTransitions = map[models.ValidityStatus][]models.ValidityStatus{
	models.StatusProbation:        {models.StatusActive, models.StatusFlaggedForReview, models.StatusRetired},
	models.StatusActive:           {models.StatusFlaggedForReview, models.StatusRetired},
	models.StatusFlaggedForReview: {models.StatusActive, models.StatusRetired},
	models.StatusRetired:          {models.StatusActive},
}

// CanTransition reports whether from→to appears in the transition table.
func CanTransition(from, to models.ValidityStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValidateManualTransition checks an admin override against the machine.
// Reactivating a retired item requires its current discrimination to be
// non-negative; a toxic item stays retired.
func ValidateManualTransition(from, to models.ValidityStatus, discrimination *float64) error {
	if from == to {
		return fmt.Errorf("%w: item is already %s", ErrInvalidTransition, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if from == models.StatusRetired {
		if discrimination == nil || *discrimination < 0 {
			return fmt.Errorf("%w: cannot reactivate retired item with negative or unknown discrimination", ErrInvalidTransition)
		}
	}
	return nil
}

// EvaluateAutomatic applies the audit policy to freshly computed metrics and
// returns the target status with a machine-generated reason. The boolean is
// false when no transition applies. Items below the response gate never move,
// and the policy never touches retired items.
func EvaluateAutomatic(current models.ValidityStatus, responseCount int, discrimination *float64, discFlag models.DiscriminationFlag, diffFlag models.DifficultyFlag) (models.ValidityStatus, string, bool) {
	if responseCount < models.MinResponsesForStats || current == models.StatusRetired {
		return current, "", false
	}

	// Toxic item: actively penalizes skilled respondents.
	if discFlag == models.DiscriminationFlagNegative {
		if CanTransition(current, models.StatusRetired) {
			reason := fmt.Sprintf("auto-retired: negative discrimination (%.3f) after %d responses", deref(discrimination), responseCount)
			return models.StatusRetired, reason, true
		}
		return current, "", false
	}

	flagged := discFlag == models.DiscriminationFlagCritical ||
		discFlag == models.DiscriminationFlagWarning ||
		diffFlag != models.DifficultyFlagNone

	switch current {
	case models.StatusProbation:
		if flagged {
			reason := fmt.Sprintf("auto-flagged: discrimination_flag=%s difficulty_flag=%s after %d responses", discFlag, diffFlag, responseCount)
			return models.StatusFlaggedForReview, reason, true
		}
		if discrimination != nil && *discrimination >= DiscriminationActiveMin {
			reason := fmt.Sprintf("auto-activated: discrimination %.3f >= %.2f after %d responses", *discrimination, DiscriminationActiveMin, responseCount)
			return models.StatusActive, reason, true
		}
	case models.StatusActive:
		if flagged {
			reason := fmt.Sprintf("auto-flagged: discrimination_flag=%s difficulty_flag=%s after %d responses", discFlag, diffFlag, responseCount)
			return models.StatusFlaggedForReview, reason, true
		}
	case models.StatusFlaggedForReview:
		// Leaving review in either direction (other than retirement above)
		// is an admin decision, not an automatic one.
	}

	return current, "", false
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
