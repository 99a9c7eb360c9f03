package psychometrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/talentlens/backend/internal/irt"
	"github.com/talentlens/backend/internal/models"
)

// optimisticRetries bounds how often a writer reloads and retries after a
// version conflict before surfacing ErrConcurrentModification.
const optimisticRetries = 3

// Storage is the persistence surface the service drives. Implemented by
// *Store.
type Storage interface {
	GetCompetency(id int64) (*models.Competency, error)
	ListCompetencies() ([]models.Competency, error)
	GetQuestion(id int64) (*models.Question, error)
	QuestionsForCompetency(competencyID int64) ([]models.Question, error)
	ResponsesForItem(ctx context.Context, questionID int64) ([]models.QuestionResponse, error)
	ResponsesForQuestions(ctx context.Context, questionIDs []int64) ([]models.QuestionResponse, error)
	GetItemStatistics(questionID int64) (*models.ItemStatistics, error)
	EnsureItemStatistics(questionID int64) (*models.ItemStatistics, error)
	EnsureStatisticsRows(ctx context.Context) error
	SaveItemStatistics(ctx context.Context, st *models.ItemStatistics, change *models.StatusChange) error
	SetIRTParameters(ctx context.Context, questionID int64, a, b float64) error
	StatusHistory(questionID int64) ([]models.StatusChange, error)
	SaveDistractorRates(ctx context.Context, questionID int64, rates map[string]float64) error
	DistractorRates(questionID int64) (map[string]float64, error)
	SaveCompetencyReliability(ctx context.Context, rel *models.CompetencyReliability) error
	GetCompetencyReliability(competencyID int64) (*models.CompetencyReliability, error)
	SaveTraitReliability(ctx context.Context, rel *models.BigFiveReliability) error
	GetTraitReliability() ([]models.BigFiveReliability, error)
	ItemsNeedingRecalculation(ctx context.Context) ([]int64, error)
	ItemsBelowGate(ctx context.Context) (int, error)
	InsertAuditRun(ctx context.Context, summary *models.AuditSummary) error
	FlaggedItems(ctx context.Context) ([]models.ReviewItem, error)
}

type Service struct {
	store Storage
}

func NewService(store Storage) *Service {
	return &Service{store: store}
}

// ── Single-Item Recalculation ───────────────────────────

// RecalculateItem recomputes classical statistics for one item and applies
// the automatic status policy. changedBy is nil for audit-driven runs.
func (s *Service) RecalculateItem(ctx context.Context, questionID int64) (*models.ItemStatistics, error) {
	question, err := s.store.GetQuestion(questionID)
	if err != nil {
		return nil, err
	}

	var result *models.ItemStatistics
	for attempt := 0; attempt < optimisticRetries; attempt++ {
		// Re-read responses every attempt: a version conflict means another
		// writer changed the record, and new responses may have landed with it.
		responses, err := s.store.ResponsesForItem(ctx, questionID)
		if err != nil {
			return nil, err
		}
		if len(responses) == 0 {
			return nil, fmt.Errorf("question %d has no response data: %w", questionID, ErrNotFound)
		}

		stats, err := s.store.EnsureItemStatistics(questionID)
		if err != nil {
			return nil, err
		}

		updated, change, err := s.computeItemUpdate(ctx, question, stats, responses)
		if err != nil {
			return nil, err
		}

		err = s.store.SaveItemStatistics(ctx, updated, change)
		if err == nil {
			result = updated
			break
		}
		if !errors.Is(err, ErrConcurrentModification) {
			return nil, err
		}
		log.Printf("Item %d: version conflict on attempt %d, retrying with fresh data", questionID, attempt+1)
	}
	if result == nil {
		return nil, fmt.Errorf("question %d: %w", questionID, ErrConcurrentModification)
	}

	if question.QuestionType == models.QuestionTypeChoice && result.DistractorEfficiency != nil {
		if err := s.store.SaveDistractorRates(ctx, questionID, result.DistractorEfficiency); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// computeItemUpdate derives the next statistics record from raw responses
// without touching storage. The returned change is nil when the status does
// not move.
func (s *Service) computeItemUpdate(ctx context.Context, question *models.Question, stats *models.ItemStatistics, responses []models.QuestionResponse) (*models.ItemStatistics, *models.StatusChange, error) {
	now := time.Now()
	updated := *stats
	updated.ResponseCount = len(responses)
	updated.PreviousDiscriminationIndex = stats.DiscriminationIndex
	updated.LastCalculatedAt = &now

	if len(responses) < models.MinResponsesForStats {
		// Below the gate every metric stays null and flags stay unset.
		updated.DifficultyIndex = nil
		updated.DiscriminationIndex = nil
		updated.DifficultyFlag = models.DifficultyFlagNone
		updated.DiscriminationFlag = models.DiscriminationFlagNone
		return &updated, nil, nil
	}

	scores := make([]float64, len(responses))
	for i, r := range responses {
		scores[i] = r.Score
	}
	difficulty := DifficultyIndex(scores)
	updated.DifficultyIndex = &difficulty
	updated.DifficultyFlag = DifficultyFlagFor(difficulty)

	discrimination, err := s.itemDiscrimination(ctx, question, responses)
	if err != nil {
		return nil, nil, err
	}
	updated.DiscriminationIndex = &discrimination
	updated.DiscriminationFlag = DiscriminationFlagFor(discrimination)

	if question.QuestionType == models.QuestionTypeChoice && question.CorrectOptionID != nil {
		selections := make(map[string]int)
		for _, r := range responses {
			if r.OptionID != nil {
				selections[*r.OptionID]++
			}
		}
		updated.DistractorEfficiency = DistractorEfficiency(selections, len(responses), *question.CorrectOptionID)
	}

	next, reason, moved := EvaluateAutomatic(stats.ValidityStatus, updated.ResponseCount,
		updated.DiscriminationIndex, updated.DiscriminationFlag, updated.DifficultyFlag)

	var change *models.StatusChange
	if moved {
		updated.ValidityStatus = next
		change = &models.StatusChange{
			QuestionID: question.ID,
			FromStatus: stats.ValidityStatus,
			ToStatus:   next,
			Reason:     reason,
		}
	}

	return &updated, change, nil
}

// itemDiscrimination computes the point-biserial correlation between the
// item's scores and each respondent's rest score on the same competency
// scale (total with the item excluded).
func (s *Service) itemDiscrimination(ctx context.Context, question *models.Question, itemResponses []models.QuestionResponse) (float64, error) {
	siblings, err := s.store.QuestionsForCompetency(question.CompetencyID)
	if err != nil {
		return 0, err
	}
	ids := make([]int64, len(siblings))
	for i, q := range siblings {
		ids[i] = q.ID
	}

	scaleResponses, err := s.store.ResponsesForQuestions(ctx, ids)
	if err != nil {
		return 0, err
	}

	totals := make(map[string]float64)
	for _, r := range scaleResponses {
		totals[r.SessionID] += r.Score
	}

	var itemScores, restScores []float64
	for _, r := range itemResponses {
		itemScores = append(itemScores, r.Score)
		restScores = append(restScores, totals[r.SessionID]-r.Score)
	}

	return PointBiserial(itemScores, restScores), nil
}

// ── Status Overrides ────────────────────────────────────

// OverrideStatus applies a manual admin transition, bypassing the automatic
// policy but never the machine itself. The reason is mandatory and recorded
// distinctly from automatic reasons.
func (s *Service) OverrideStatus(ctx context.Context, questionID int64, to models.ValidityStatus, reason string, adminID int64) (*models.ItemStatistics, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: override reason is required", ErrInvalidTransition)
	}

	for attempt := 0; attempt < optimisticRetries; attempt++ {
		stats, err := s.store.GetItemStatistics(questionID)
		if err != nil {
			return nil, err
		}

		if err := ValidateManualTransition(stats.ValidityStatus, to, stats.DiscriminationIndex); err != nil {
			return nil, err
		}

		updated := *stats
		updated.ValidityStatus = to
		change := &models.StatusChange{
			QuestionID: questionID,
			FromStatus: stats.ValidityStatus,
			ToStatus:   to,
			Reason:     fmt.Sprintf("manual override: %s", reason),
			ChangedBy:  &adminID,
		}

		err = s.store.SaveItemStatistics(ctx, &updated, change)
		if err == nil {
			return &updated, nil
		}
		if !errors.Is(err, ErrConcurrentModification) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("question %d: %w", questionID, ErrConcurrentModification)
}

// ── Competency Calibration & Reliability ────────────────

// RecalculateCompetency rebuilds the competency's response matrix, runs IRT
// calibration over the surviving items, and recomputes scale reliability.
// A matrix emptied by filtering is insufficient data, not an error.
func (s *Service) RecalculateCompetency(ctx context.Context, competencyID int64) (calibrated bool, err error) {
	competency, err := s.store.GetCompetency(competencyID)
	if err != nil {
		return false, err
	}

	questions, err := s.store.QuestionsForCompetency(competencyID)
	if err != nil {
		return false, err
	}
	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	responses, err := s.store.ResponsesForQuestions(ctx, ids)
	if err != nil {
		return false, err
	}
	if len(responses) == 0 {
		return false, fmt.Errorf("competency %d has no response data: %w", competencyID, ErrNotFound)
	}

	matrix := BuildResponseMatrix(responses)
	if result := irt.Calibrate(matrix); result != nil {
		for _, item := range result.Items {
			if err := s.store.SetIRTParameters(ctx, item.QuestionID, item.Discrimination, item.Difficulty); err != nil {
				return false, err
			}
		}
		calibrated = true
		log.Printf("Competency %d (%s): calibrated %d items over %d respondents in %d cycles",
			competencyID, competency.Name, matrix.ItemCount(), matrix.RespondentCount(), result.Cycles)
	}

	if err := s.recalculateCompetencyReliability(ctx, competencyID, responses); err != nil {
		return calibrated, err
	}
	return calibrated, nil
}

func (s *Service) recalculateCompetencyReliability(ctx context.Context, competencyID int64, responses []models.QuestionResponse) error {
	scoreMatrix, questionIDs := buildScoreMatrix(responses)

	rel := &models.CompetencyReliability{
		CompetencyID:     competencyID,
		SampleSize:       len(scoreMatrix),
		ItemCount:        len(questionIDs),
		LastCalculatedAt: time.Now(),
	}
	rel.CronbachAlpha, rel.AlphaIfDeleted = reliabilityFromMatrix(scoreMatrix, questionIDs)
	rel.Status = ReliabilityStatusFor(rel.CronbachAlpha)

	return s.store.SaveCompetencyReliability(ctx, rel)
}

// RecalculateTrait aggregates all items across competencies mapped to the
// trait and recomputes trait-level reliability. A trait with no current data
// is still written, as INSUFFICIENT_DATA.
func (s *Service) RecalculateTrait(ctx context.Context, trait models.BigFiveTrait) error {
	competencies, err := s.store.ListCompetencies()
	if err != nil {
		return err
	}

	var ids []int64
	contributing := 0
	for _, c := range competencies {
		if c.Trait != trait {
			continue
		}
		questions, err := s.store.QuestionsForCompetency(c.ID)
		if err != nil {
			return err
		}
		if len(questions) > 0 {
			contributing++
		}
		for _, q := range questions {
			ids = append(ids, q.ID)
		}
	}

	responses, err := s.store.ResponsesForQuestions(ctx, ids)
	if err != nil {
		return err
	}

	scoreMatrix, questionIDs := buildScoreMatrix(responses)
	rel := &models.BigFiveReliability{
		Trait:                    trait,
		SampleSize:               len(scoreMatrix),
		TotalItems:               len(questionIDs),
		ContributingCompetencies: contributing,
		LastCalculatedAt:         time.Now(),
	}
	rel.CronbachAlpha, rel.AlphaIfDeleted = reliabilityFromMatrix(scoreMatrix, questionIDs)
	rel.Status = ReliabilityStatusFor(rel.CronbachAlpha)

	return s.store.SaveTraitReliability(ctx, rel)
}

// reliabilityFromMatrix applies the sample-size and scale-length gates, then
// computes alpha and the leave-one-out map keyed by question id.
func reliabilityFromMatrix(scoreMatrix [][]float64, questionIDs []int64) (*float64, map[int64]float64) {
	if len(scoreMatrix) < models.MinResponsesForStats || len(questionIDs) < MinReliabilityItems {
		return nil, nil
	}

	alpha, ok := CronbachAlpha(scoreMatrix)
	if !ok {
		return nil, nil
	}

	byQuestion := make(map[int64]float64)
	for idx, a := range AlphaIfDeleted(scoreMatrix) {
		byQuestion[questionIDs[idx]] = a
	}
	return &alpha, byQuestion
}

// buildScoreMatrix groups raw (non-dichotomized) scores into complete
// [respondent][item] rows, excluding respondents with partial coverage.
func buildScoreMatrix(responses []models.QuestionResponse) ([][]float64, []int64) {
	if len(responses) == 0 {
		return nil, nil
	}

	itemSet := make(map[int64]bool)
	bySession := make(map[string]map[int64]float64)
	for _, r := range responses {
		itemSet[r.QuestionID] = true
		row, ok := bySession[r.SessionID]
		if !ok {
			row = make(map[int64]float64)
			bySession[r.SessionID] = row
		}
		row[r.QuestionID] = r.Score
	}

	questionIDs := make([]int64, 0, len(itemSet))
	for id := range itemSet {
		questionIDs = append(questionIDs, id)
	}
	sort.Slice(questionIDs, func(i, j int) bool { return questionIDs[i] < questionIDs[j] })

	sessions := make([]string, 0, len(bySession))
	for sid := range bySession {
		sessions = append(sessions, sid)
	}
	sort.Strings(sessions)

	var matrix [][]float64
	for _, sid := range sessions {
		answers := bySession[sid]
		if len(answers) < len(questionIDs) {
			continue
		}
		row := make([]float64, len(questionIDs))
		for i, qid := range questionIDs {
			row[i] = answers[qid]
		}
		matrix = append(matrix, row)
	}
	return matrix, questionIDs
}

// ── Read Paths ──────────────────────────────────────────

func (s *Service) ItemView(questionID int64) (*models.ItemStatisticsView, error) {
	stats, err := s.store.GetItemStatistics(questionID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.StatusHistory(questionID)
	if err != nil {
		return nil, err
	}

	rates, err := s.store.DistractorRates(questionID)
	if err != nil {
		return nil, err
	}
	if len(rates) > 0 {
		stats.DistractorEfficiency = rates
	}

	return &models.ItemStatisticsView{
		ItemStatistics:  *stats,
		History:         history,
		Recommendations: DistractorRecommendations(rates),
	}, nil
}

func (s *Service) CompetencyReliabilityView(competencyID int64) (*models.CompetencyReliabilityView, error) {
	rel, err := s.store.GetCompetencyReliability(competencyID)
	if err != nil {
		return nil, err
	}

	view := &models.CompetencyReliabilityView{CompetencyReliability: *rel}
	if rel.CronbachAlpha != nil {
		for questionID, alpha := range rel.AlphaIfDeleted {
			improvement := alpha - *rel.CronbachAlpha
			view.ItemAdvice = append(view.ItemAdvice, models.ItemReliabilityAdvice{
				QuestionID:     questionID,
				AlphaIfDeleted: alpha,
				Improvement:    improvement,
				Recommendation: DeletionRecommendation(improvement),
			})
		}
		sort.Slice(view.ItemAdvice, func(i, j int) bool {
			return view.ItemAdvice[i].Improvement > view.ItemAdvice[j].Improvement
		})
	}
	return view, nil
}

// TraitReliabilityViews always reports all five traits; traits absent from
// storage come back as INSUFFICIENT_DATA rather than being omitted.
func (s *Service) TraitReliabilityViews() ([]models.BigFiveReliability, error) {
	stored, err := s.store.GetTraitReliability()
	if err != nil {
		return nil, err
	}

	byTrait := make(map[models.BigFiveTrait]models.BigFiveReliability, len(stored))
	for _, rel := range stored {
		byTrait[rel.Trait] = rel
	}

	out := make([]models.BigFiveReliability, 0, len(models.AllBigFiveTraits))
	for _, trait := range models.AllBigFiveTraits {
		if rel, ok := byTrait[trait]; ok {
			out = append(out, rel)
			continue
		}
		out = append(out, models.BigFiveReliability{
			Trait:  trait,
			Status: models.ReliabilityInsufficientData,
		})
	}
	return out, nil
}

// ReviewQueue returns flagged items sorted by severity: negative
// discrimination first, then critical, then warnings and difficulty extremes.
func (s *Service) ReviewQueue(ctx context.Context) ([]models.ReviewItem, error) {
	items, err := s.store.FlaggedItems(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Severity = Severity(items[i].DiscriminationFlag, items[i].DifficultyFlag)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Severity > items[j].Severity })
	return items, nil
}

// ── Audit Plumbing ──────────────────────────────────────

func (s *Service) EnsureStatisticsRows(ctx context.Context) error {
	return s.store.EnsureStatisticsRows(ctx)
}

func (s *Service) ItemsNeedingRecalculation(ctx context.Context) ([]int64, error) {
	return s.store.ItemsNeedingRecalculation(ctx)
}

func (s *Service) ItemsBelowGate(ctx context.Context) (int, error) {
	return s.store.ItemsBelowGate(ctx)
}

func (s *Service) ListCompetencies() ([]models.Competency, error) {
	return s.store.ListCompetencies()
}

func (s *Service) RecordAuditRun(ctx context.Context, summary *models.AuditSummary) error {
	return s.store.InsertAuditRun(ctx, summary)
}
