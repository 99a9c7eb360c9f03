package models

import "time"

// ── Validity Lifecycle ──────────────────────────────────

type ValidityStatus string

const (
	StatusProbation        ValidityStatus = "probation"
	StatusActive           ValidityStatus = "active"
	StatusFlaggedForReview ValidityStatus = "flagged_for_review"
	StatusRetired          ValidityStatus = "retired"
)

var ValidStatuses = map[ValidityStatus]bool{
	StatusProbation:        true,
	StatusActive:           true,
	StatusFlaggedForReview: true,
	StatusRetired:          true,
}

type DifficultyFlag string

const (
	DifficultyFlagNone    DifficultyFlag = "none"
	DifficultyFlagTooHard DifficultyFlag = "too_hard"
	DifficultyFlagTooEasy DifficultyFlag = "too_easy"
)

type DiscriminationFlag string

const (
	DiscriminationFlagNone     DiscriminationFlag = "none"
	DiscriminationFlagWarning  DiscriminationFlag = "warning"
	DiscriminationFlagCritical DiscriminationFlag = "critical"
	DiscriminationFlagNegative DiscriminationFlag = "negative"
)

// StatusChange is one immutable entry in an item's audit trail.
type StatusChange struct {
	ID         int64          `json:"id"`
	QuestionID int64          `json:"question_id"`
	FromStatus ValidityStatus `json:"from_status"`
	ToStatus   ValidityStatus `json:"to_status"`
	Reason     string         `json:"reason"`
	ChangedBy  *int64         `json:"changed_by,omitempty"` // nil for automatic transitions
	CreatedAt  time.Time      `json:"created_at"`
}

// ── Item Statistics ─────────────────────────────────────

// MinResponsesForStats is the sample-size gate: below it every metric stays
// null and the item cannot leave probation.
const MinResponsesForStats = 50

type ItemStatistics struct {
	ID                          int64              `json:"id"`
	QuestionID                  int64              `json:"question_id"`
	ResponseCount               int                `json:"response_count"`
	DifficultyIndex             *float64           `json:"difficulty_index,omitempty"`
	DiscriminationIndex         *float64           `json:"discrimination_index,omitempty"`
	PreviousDiscriminationIndex *float64           `json:"previous_discrimination_index,omitempty"`
	DistractorEfficiency        map[string]float64 `json:"distractor_efficiency,omitempty"`
	ValidityStatus              ValidityStatus     `json:"validity_status"`
	DifficultyFlag              DifficultyFlag     `json:"difficulty_flag"`
	DiscriminationFlag          DiscriminationFlag `json:"discrimination_flag"`
	IRTDiscrimination           *float64           `json:"irt_discrimination,omitempty"`
	IRTDifficulty               *float64           `json:"irt_difficulty,omitempty"`
	IRTGuessing                 *float64           `json:"irt_guessing,omitempty"` // stored, never estimated
	Version                     int64              `json:"-"`
	LastCalculatedAt            *time.Time         `json:"last_calculated_at,omitempty"`
	CreatedAt                   time.Time          `json:"created_at"`
	UpdatedAt                   time.Time          `json:"updated_at"`
}

// ItemStatisticsView is the read snapshot exposed to collaborators.
type ItemStatisticsView struct {
	ItemStatistics
	History         []StatusChange `json:"status_change_history"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// ReviewItem is one entry in the "items requiring review" queue.
type ReviewItem struct {
	QuestionID          int64              `json:"question_id"`
	CompetencyID        int64              `json:"competency_id"`
	ValidityStatus      ValidityStatus     `json:"validity_status"`
	DifficultyFlag      DifficultyFlag     `json:"difficulty_flag"`
	DiscriminationFlag  DiscriminationFlag `json:"discrimination_flag"`
	DiscriminationIndex *float64           `json:"discrimination_index,omitempty"`
	Severity            int                `json:"severity"`
}

// ── Reliability ─────────────────────────────────────────

type ReliabilityStatus string

const (
	ReliabilityReliable         ReliabilityStatus = "reliable"
	ReliabilityAcceptable       ReliabilityStatus = "acceptable"
	ReliabilityUnreliable       ReliabilityStatus = "unreliable"
	ReliabilityInsufficientData ReliabilityStatus = "insufficient_data"
)

type CompetencyReliability struct {
	ID               int64             `json:"id"`
	CompetencyID     int64             `json:"competency_id"`
	CronbachAlpha    *float64          `json:"cronbach_alpha,omitempty"`
	SampleSize       int               `json:"sample_size"`
	ItemCount        int               `json:"item_count"`
	Status           ReliabilityStatus `json:"reliability_status"`
	AlphaIfDeleted   map[int64]float64 `json:"alpha_if_deleted,omitempty"`
	LastCalculatedAt time.Time         `json:"last_calculated_at"`
}

type BigFiveTrait string

const (
	TraitOpenness          BigFiveTrait = "openness"
	TraitConscientiousness BigFiveTrait = "conscientiousness"
	TraitExtraversion      BigFiveTrait = "extraversion"
	TraitAgreeableness     BigFiveTrait = "agreeableness"
	TraitNeuroticism       BigFiveTrait = "neuroticism"
)

// AllBigFiveTraits is the fixed aggregation scope: every trait is always
// reported, even when no competency currently maps to it.
var AllBigFiveTraits = []BigFiveTrait{
	TraitOpenness,
	TraitConscientiousness,
	TraitExtraversion,
	TraitAgreeableness,
	TraitNeuroticism,
}

type BigFiveReliability struct {
	ID                       int64             `json:"id"`
	Trait                    BigFiveTrait      `json:"trait"`
	CronbachAlpha            *float64          `json:"cronbach_alpha,omitempty"`
	SampleSize               int               `json:"sample_size"`
	TotalItems               int               `json:"total_items"`
	ContributingCompetencies int               `json:"contributing_competencies"`
	Status                   ReliabilityStatus `json:"reliability_status"`
	AlphaIfDeleted           map[int64]float64 `json:"alpha_if_deleted,omitempty"`
	LastCalculatedAt         time.Time         `json:"last_calculated_at"`
}

// ItemReliabilityAdvice pairs an item's alpha-if-deleted with the
// recommendation text derived from the improvement magnitude.
type ItemReliabilityAdvice struct {
	QuestionID     int64   `json:"question_id"`
	AlphaIfDeleted float64 `json:"alpha_if_deleted"`
	Improvement    float64 `json:"improvement"`
	Recommendation string  `json:"recommendation"`
}

type CompetencyReliabilityView struct {
	CompetencyReliability
	ItemAdvice []ItemReliabilityAdvice `json:"item_advice,omitempty"`
}

// ── Audit Runs ──────────────────────────────────────────

type AuditTrigger string

const (
	AuditTriggerScheduled AuditTrigger = "scheduled"
	AuditTriggerManual    AuditTrigger = "manual"
)

type AuditSummary struct {
	RunID                   string       `json:"run_id"`
	Trigger                 AuditTrigger `json:"trigger"`
	ItemsRecalculated       int          `json:"items_recalculated"`
	ItemsSkipped            int          `json:"items_skipped"`
	CompetenciesCalibrated  int          `json:"competencies_calibrated"`
	ReliabilityRecalculated int          `json:"reliability_recalculated"`
	TraitsRecalculated      int          `json:"traits_recalculated"`
	Failures                int          `json:"failures"`
	StartedAt               time.Time    `json:"started_at"`
	CompletedAt             time.Time    `json:"completed_at"`
}

// ── Requests ────────────────────────────────────────────

type StatusOverrideRequest struct {
	Status ValidityStatus `json:"status"`
	Reason string         `json:"reason"`
}
