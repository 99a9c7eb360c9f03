package models

import "time"

// The catalog tables are owned by the content/delivery layer; this engine
// only reads them to attribute statistics.

type QuestionType string

const (
	QuestionTypeChoice QuestionType = "choice"
	QuestionTypeScale  QuestionType = "scale"
	QuestionTypeOpen   QuestionType = "open"
)

type Competency struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Trait     BigFiveTrait `json:"trait"`
	CreatedAt time.Time    `json:"created_at"`
}

type Question struct {
	ID              int64        `json:"id"`
	CompetencyID    int64        `json:"competency_id"`
	QuestionType    QuestionType `json:"question_type"`
	CorrectOptionID *string      `json:"correct_option_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

type QuestionOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	OptionID   string `json:"option_id"`
	Text       string `json:"text"`
}

// QuestionResponse is one respondent's normalized score on one item.
// Score is in [0,1]; dichotomization happens downstream.
type QuestionResponse struct {
	SessionID  string  `json:"session_id"`
	QuestionID int64   `json:"question_id"`
	Score      float64 `json:"score"`
	OptionID   *string `json:"option_id,omitempty"`
}
