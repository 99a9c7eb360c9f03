package psychometrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/talentlens/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

var _ Storage = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Catalog Reads ───────────────────────────────────────

func (s *Store) GetCompetency(id int64) (*models.Competency, error) {
	var c models.Competency
	err := s.db.QueryRow(
		`SELECT id, name, trait, created_at FROM competencies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Trait, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("competency %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get competency: %w", err)
	}
	return &c, nil
}

func (s *Store) ListCompetencies() ([]models.Competency, error) {
	rows, err := s.db.Query(`SELECT id, name, trait, created_at FROM competencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list competencies: %w", err)
	}
	defer rows.Close()

	var out []models.Competency
	for rows.Next() {
		var c models.Competency
		if err := rows.Scan(&c.ID, &c.Name, &c.Trait, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan competency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetQuestion(id int64) (*models.Question, error) {
	var q models.Question
	err := s.db.QueryRow(
		`SELECT id, competency_id, question_type, correct_option_id, created_at
		 FROM questions WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.CompetencyID, &q.QuestionType, &q.CorrectOptionID, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

func (s *Store) QuestionsForCompetency(competencyID int64) ([]models.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, competency_id, question_type, correct_option_id, created_at
		 FROM questions WHERE competency_id = $1 ORDER BY id`,
		competencyID,
	)
	if err != nil {
		return nil, fmt.Errorf("questions for competency: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.CompetencyID, &q.QuestionType, &q.CorrectOptionID, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ── Response Streams ────────────────────────────────────

// ResponsesForItem streams all (respondent, score) pairs for one item.
func (s *Store) ResponsesForItem(ctx context.Context, questionID int64) ([]models.QuestionResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, question_id, score, option_id
		 FROM question_responses WHERE question_id = $1 ORDER BY created_at`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("responses for item: %w", err)
	}
	defer rows.Close()
	return scanResponses(rows)
}

// ResponsesForQuestions streams all (respondent, item, score) triples for a
// set of items, used for competency and trait scopes.
func (s *Store) ResponsesForQuestions(ctx context.Context, questionIDs []int64) ([]models.QuestionResponse, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, question_id, score, option_id
		 FROM question_responses WHERE question_id = ANY($1) ORDER BY created_at`,
		pq.Array(questionIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("responses for questions: %w", err)
	}
	defer rows.Close()
	return scanResponses(rows)
}

func scanResponses(rows *sql.Rows) ([]models.QuestionResponse, error) {
	var out []models.QuestionResponse
	for rows.Next() {
		var r models.QuestionResponse
		if err := rows.Scan(&r.SessionID, &r.QuestionID, &r.Score, &r.OptionID); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ── Item Statistics ─────────────────────────────────────

const itemStatsColumns = `id, question_id, response_count, difficulty_index, discrimination_index,
	previous_discrimination_index, validity_status, difficulty_flag, discrimination_flag,
	irt_discrimination, irt_difficulty, irt_guessing, version, last_calculated_at, created_at, updated_at`

func scanItemStats(row interface{ Scan(...interface{}) error }) (*models.ItemStatistics, error) {
	var st models.ItemStatistics
	var difficulty, discrimination, prevDiscrimination, irtA, irtB, irtC sql.NullFloat64
	var lastCalc sql.NullTime
	err := row.Scan(&st.ID, &st.QuestionID, &st.ResponseCount, &difficulty, &discrimination,
		&prevDiscrimination, &st.ValidityStatus, &st.DifficultyFlag, &st.DiscriminationFlag,
		&irtA, &irtB, &irtC, &st.Version, &lastCalc, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.DifficultyIndex = nullableFloat(difficulty)
	st.DiscriminationIndex = nullableFloat(discrimination)
	st.PreviousDiscriminationIndex = nullableFloat(prevDiscrimination)
	st.IRTDiscrimination = nullableFloat(irtA)
	st.IRTDifficulty = nullableFloat(irtB)
	st.IRTGuessing = nullableFloat(irtC)
	if lastCalc.Valid {
		st.LastCalculatedAt = &lastCalc.Time
	}
	return &st, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *Store) GetItemStatistics(questionID int64) (*models.ItemStatistics, error) {
	st, err := scanItemStats(s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM item_statistics WHERE question_id = $1`, itemStatsColumns),
		questionID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("statistics for question %d: %w", questionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item statistics: %w", err)
	}
	return st, nil
}

// EnsureItemStatistics creates the probation record the first time an item
// receives responses, then returns the current row.
func (s *Store) EnsureItemStatistics(questionID int64) (*models.ItemStatistics, error) {
	_, err := s.db.Exec(
		`INSERT INTO item_statistics (question_id, validity_status)
		 VALUES ($1, $2) ON CONFLICT (question_id) DO NOTHING`,
		questionID, models.StatusProbation,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure item statistics: %w", err)
	}
	return s.GetItemStatistics(questionID)
}

// EnsureStatisticsRows creates probation records for every item that has
// responses but no statistics row yet.
func (s *Store) EnsureStatisticsRows(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO item_statistics (question_id, validity_status)
		 SELECT DISTINCT r.question_id, 'probation' FROM question_responses r
		 ON CONFLICT (question_id) DO NOTHING`,
	)
	if err != nil {
		return fmt.Errorf("ensure statistics rows: %w", err)
	}
	return nil
}

// SaveItemStatistics writes a recalculated record using optimistic locking
// against the version the caller read. A status change, when present, is
// appended to the history in the same transaction so the audit trail can
// never drift from the status column. Returns ErrConcurrentModification when
// another writer got there first; callers retry with fresh data.
func (s *Store) SaveItemStatistics(ctx context.Context, st *models.ItemStatistics, change *models.StatusChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE item_statistics
		 SET response_count = $1, difficulty_index = $2, discrimination_index = $3,
		     previous_discrimination_index = $4, validity_status = $5, difficulty_flag = $6,
		     discrimination_flag = $7, last_calculated_at = $8, version = version + 1, updated_at = NOW()
		 WHERE question_id = $9 AND version = $10`,
		st.ResponseCount, st.DifficultyIndex, st.DiscriminationIndex,
		st.PreviousDiscriminationIndex, st.ValidityStatus, st.DifficultyFlag,
		st.DiscriminationFlag, st.LastCalculatedAt, st.QuestionID, st.Version,
	)
	if err != nil {
		return fmt.Errorf("update item statistics: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("question %d version %d: %w", st.QuestionID, st.Version, ErrConcurrentModification)
	}

	if change != nil {
		_, err = tx.Exec(
			`INSERT INTO item_status_history (question_id, from_status, to_status, reason, changed_by)
			 VALUES ($1, $2, $3, $4, $5)`,
			change.QuestionID, change.FromStatus, change.ToStatus, change.Reason, change.ChangedBy,
		)
		if err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
	}

	return tx.Commit()
}

// SetIRTParameters writes calibrated a/b for one item. The guessing column
// is stored but never estimated, so it is left untouched.
func (s *Store) SetIRTParameters(ctx context.Context, questionID int64, a, b float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE item_statistics
		 SET irt_discrimination = $1, irt_difficulty = $2, updated_at = NOW()
		 WHERE question_id = $3`,
		a, b, questionID,
	)
	if err != nil {
		return fmt.Errorf("set irt parameters: %w", err)
	}
	return nil
}

func (s *Store) StatusHistory(questionID int64) ([]models.StatusChange, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, from_status, to_status, reason, changed_by, created_at
		 FROM item_status_history WHERE question_id = $1 ORDER BY created_at, id`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	defer rows.Close()

	var out []models.StatusChange
	for rows.Next() {
		var c models.StatusChange
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.FromStatus, &c.ToStatus, &c.Reason, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ── Distractor Stats ────────────────────────────────────

func (s *Store) SaveDistractorRates(ctx context.Context, questionID int64, rates map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM distractor_stats WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("clear distractor stats: %w", err)
	}
	for optionID, rate := range rates {
		_, err := tx.Exec(
			`INSERT INTO distractor_stats (question_id, option_id, selection_rate, calculated_at)
			 VALUES ($1, $2, $3, NOW())`,
			questionID, optionID, rate,
		)
		if err != nil {
			return fmt.Errorf("insert distractor stat: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) DistractorRates(questionID int64) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT option_id, selection_rate FROM distractor_stats WHERE question_id = $1`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("distractor rates: %w", err)
	}
	defer rows.Close()

	rates := make(map[string]float64)
	for rows.Next() {
		var optionID string
		var rate float64
		if err := rows.Scan(&optionID, &rate); err != nil {
			return nil, fmt.Errorf("scan distractor rate: %w", err)
		}
		rates[optionID] = rate
	}
	return rates, rows.Err()
}

// ── Reliability ─────────────────────────────────────────

func (s *Store) SaveCompetencyReliability(ctx context.Context, rel *models.CompetencyReliability) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO competency_reliability
		 (competency_id, cronbach_alpha, sample_size, item_count, reliability_status, last_calculated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (competency_id) DO UPDATE SET
		   cronbach_alpha = EXCLUDED.cronbach_alpha, sample_size = EXCLUDED.sample_size,
		   item_count = EXCLUDED.item_count, reliability_status = EXCLUDED.reliability_status,
		   last_calculated_at = EXCLUDED.last_calculated_at`,
		rel.CompetencyID, rel.CronbachAlpha, rel.SampleSize, rel.ItemCount, rel.Status, rel.LastCalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("save competency reliability: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM competency_alpha_if_deleted WHERE competency_id = $1`, rel.CompetencyID); err != nil {
		return fmt.Errorf("clear alpha-if-deleted: %w", err)
	}
	for questionID, alpha := range rel.AlphaIfDeleted {
		_, err := tx.Exec(
			`INSERT INTO competency_alpha_if_deleted (competency_id, question_id, alpha) VALUES ($1, $2, $3)`,
			rel.CompetencyID, questionID, alpha,
		)
		if err != nil {
			return fmt.Errorf("insert alpha-if-deleted: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetCompetencyReliability(competencyID int64) (*models.CompetencyReliability, error) {
	var rel models.CompetencyReliability
	var alpha sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT id, competency_id, cronbach_alpha, sample_size, item_count, reliability_status, last_calculated_at
		 FROM competency_reliability WHERE competency_id = $1`,
		competencyID,
	).Scan(&rel.ID, &rel.CompetencyID, &alpha, &rel.SampleSize, &rel.ItemCount, &rel.Status, &rel.LastCalculatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reliability for competency %d: %w", competencyID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get competency reliability: %w", err)
	}
	rel.CronbachAlpha = nullableFloat(alpha)

	rows, err := s.db.Query(
		`SELECT question_id, alpha FROM competency_alpha_if_deleted WHERE competency_id = $1`,
		competencyID,
	)
	if err != nil {
		return nil, fmt.Errorf("alpha-if-deleted: %w", err)
	}
	defer rows.Close()

	rel.AlphaIfDeleted = make(map[int64]float64)
	for rows.Next() {
		var questionID int64
		var a float64
		if err := rows.Scan(&questionID, &a); err != nil {
			return nil, fmt.Errorf("scan alpha-if-deleted: %w", err)
		}
		rel.AlphaIfDeleted[questionID] = a
	}
	return &rel, rows.Err()
}

func (s *Store) SaveTraitReliability(ctx context.Context, rel *models.BigFiveReliability) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO big_five_reliability
		 (trait, cronbach_alpha, sample_size, total_items, contributing_competencies, reliability_status, last_calculated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (trait) DO UPDATE SET
		   cronbach_alpha = EXCLUDED.cronbach_alpha, sample_size = EXCLUDED.sample_size,
		   total_items = EXCLUDED.total_items, contributing_competencies = EXCLUDED.contributing_competencies,
		   reliability_status = EXCLUDED.reliability_status, last_calculated_at = EXCLUDED.last_calculated_at`,
		rel.Trait, rel.CronbachAlpha, rel.SampleSize, rel.TotalItems, rel.ContributingCompetencies, rel.Status, rel.LastCalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("save trait reliability: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM trait_alpha_if_deleted WHERE trait = $1`, rel.Trait); err != nil {
		return fmt.Errorf("clear trait alpha-if-deleted: %w", err)
	}
	for questionID, alpha := range rel.AlphaIfDeleted {
		_, err := tx.Exec(
			`INSERT INTO trait_alpha_if_deleted (trait, question_id, alpha) VALUES ($1, $2, $3)`,
			rel.Trait, questionID, alpha,
		)
		if err != nil {
			return fmt.Errorf("insert trait alpha-if-deleted: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetTraitReliability() ([]models.BigFiveReliability, error) {
	rows, err := s.db.Query(
		`SELECT id, trait, cronbach_alpha, sample_size, total_items, contributing_competencies,
		        reliability_status, last_calculated_at
		 FROM big_five_reliability ORDER BY trait`,
	)
	if err != nil {
		return nil, fmt.Errorf("trait reliability: %w", err)
	}
	defer rows.Close()

	var out []models.BigFiveReliability
	for rows.Next() {
		var rel models.BigFiveReliability
		var alpha sql.NullFloat64
		if err := rows.Scan(&rel.ID, &rel.Trait, &alpha, &rel.SampleSize, &rel.TotalItems,
			&rel.ContributingCompetencies, &rel.Status, &rel.LastCalculatedAt); err != nil {
			return nil, fmt.Errorf("scan trait reliability: %w", err)
		}
		rel.CronbachAlpha = nullableFloat(alpha)
		out = append(out, rel)
	}
	return out, rows.Err()
}

// ── Audit Support ───────────────────────────────────────

// ItemsNeedingRecalculation returns items that cleared the sample-size gate
// and have responses newer than their last calculation.
func (s *Store) ItemsNeedingRecalculation(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.question_id
		 FROM question_responses r
		 LEFT JOIN item_statistics s ON s.question_id = r.question_id
		 GROUP BY r.question_id, s.last_calculated_at
		 HAVING COUNT(*) >= $1
		    AND (s.last_calculated_at IS NULL OR MAX(r.created_at) > s.last_calculated_at)
		 ORDER BY r.question_id`,
		models.MinResponsesForStats,
	)
	if err != nil {
		return nil, fmt.Errorf("items needing recalculation: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ItemsBelowGate counts items with responses that have not yet reached the
// minimum sample size; the audit summary reports them as skipped.
func (s *Store) ItemsBelowGate(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (
		   SELECT question_id FROM question_responses GROUP BY question_id HAVING COUNT(*) < $1
		 ) below`,
		models.MinResponsesForStats,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("items below gate: %w", err)
	}
	return count, nil
}

func (s *Store) InsertAuditRun(ctx context.Context, summary *models.AuditSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_runs
		 (id, trigger_type, items_recalculated, items_skipped, competencies_calibrated,
		  reliability_recalculated, traits_recalculated, failures, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		summary.RunID, summary.Trigger, summary.ItemsRecalculated, summary.ItemsSkipped,
		summary.CompetenciesCalibrated, summary.ReliabilityRecalculated, summary.TraitsRecalculated,
		summary.Failures, summary.StartedAt, summary.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit run: %w", err)
	}
	return nil
}

func (s *Store) LastAuditRun() (*time.Time, error) {
	var completed sql.NullTime
	err := s.db.QueryRow(`SELECT MAX(completed_at) FROM audit_runs`).Scan(&completed)
	if err != nil {
		return nil, fmt.Errorf("last audit run: %w", err)
	}
	if !completed.Valid {
		return nil, nil
	}
	return &completed.Time, nil
}

// ── Review Queue ────────────────────────────────────────

// FlaggedItems returns items whose flags warrant review, for severity
// ranking in the service layer.
func (s *Store) FlaggedItems(ctx context.Context) ([]models.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.question_id, q.competency_id, s.validity_status, s.difficulty_flag,
		        s.discrimination_flag, s.discrimination_index
		 FROM item_statistics s
		 JOIN questions q ON q.id = s.question_id
		 WHERE s.discrimination_flag != 'none' OR s.difficulty_flag != 'none'
		 ORDER BY s.question_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("flagged items: %w", err)
	}
	defer rows.Close()

	var out []models.ReviewItem
	for rows.Next() {
		var item models.ReviewItem
		var discrimination sql.NullFloat64
		if err := rows.Scan(&item.QuestionID, &item.CompetencyID, &item.ValidityStatus,
			&item.DifficultyFlag, &item.DiscriminationFlag, &discrimination); err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		item.DiscriminationIndex = nullableFloat(discrimination)
		out = append(out, item)
	}
	return out, rows.Err()
}
