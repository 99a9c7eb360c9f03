package audit

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/talentlens/backend/internal/models"
	"github.com/talentlens/backend/internal/psychometrics"
)

// Engine is the recalculation surface the audit job drives. Implemented by
// *psychometrics.Service.
type Engine interface {
	EnsureStatisticsRows(ctx context.Context) error
	ItemsNeedingRecalculation(ctx context.Context) ([]int64, error)
	ItemsBelowGate(ctx context.Context) (int, error)
	RecalculateItem(ctx context.Context, questionID int64) (*models.ItemStatistics, error)
	ListCompetencies() ([]models.Competency, error)
	RecalculateCompetency(ctx context.Context, competencyID int64) (bool, error)
	RecalculateTrait(ctx context.Context, trait models.BigFiveTrait) error
	RecordAuditRun(ctx context.Context, summary *models.AuditSummary) error
}

// Run executes one full audit pass: item statistics for every item past the
// sample gate with new responses, IRT calibration and reliability per
// competency, and reliability per Big Five trait. A single entity's failure
// is recorded and skipped, never propagated; the summary reports final
// counts. Both run timestamps come from the injected clock.
func Run(ctx context.Context, engine Engine, now func() time.Time, trigger models.AuditTrigger) (*models.AuditSummary, error) {
	summary := &models.AuditSummary{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now(),
	}
	log.Printf("Audit run %s started (%s)", summary.RunID, trigger)

	if err := engine.EnsureStatisticsRows(ctx); err != nil {
		return nil, err
	}

	skipped, err := engine.ItemsBelowGate(ctx)
	if err != nil {
		return nil, err
	}
	summary.ItemsSkipped = skipped

	items, err := engine.ItemsNeedingRecalculation(ctx)
	if err != nil {
		return nil, err
	}

	for _, questionID := range items {
		if _, err := engine.RecalculateItem(ctx, questionID); err != nil {
			log.Printf("Audit run %s: item %d failed: %v", summary.RunID, questionID, err)
			summary.Failures++
			continue
		}
		summary.ItemsRecalculated++
	}

	competencies, err := engine.ListCompetencies()
	if err != nil {
		return nil, err
	}
	for _, competency := range competencies {
		calibrated, err := engine.RecalculateCompetency(ctx, competency.ID)
		if err != nil {
			if errors.Is(err, psychometrics.ErrNotFound) {
				// No response data yet: nothing to recalculate.
				continue
			}
			log.Printf("Audit run %s: competency %d failed: %v", summary.RunID, competency.ID, err)
			summary.Failures++
			continue
		}
		summary.ReliabilityRecalculated++
		if calibrated {
			summary.CompetenciesCalibrated++
		}
	}

	for _, trait := range models.AllBigFiveTraits {
		if err := engine.RecalculateTrait(ctx, trait); err != nil {
			log.Printf("Audit run %s: trait %s failed: %v", summary.RunID, trait, err)
			summary.Failures++
			continue
		}
		summary.TraitsRecalculated++
	}

	summary.CompletedAt = now()
	if err := engine.RecordAuditRun(ctx, summary); err != nil {
		return summary, err
	}

	log.Printf("Audit run %s complete: items=%d skipped=%d competencies=%d traits=%d failures=%d",
		summary.RunID, summary.ItemsRecalculated, summary.ItemsSkipped,
		summary.ReliabilityRecalculated, summary.TraitsRecalculated, summary.Failures)
	return summary, nil
}
