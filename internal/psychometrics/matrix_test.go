package psychometrics

import (
	"testing"

	"github.com/talentlens/backend/internal/models"
)

func resp(session string, question int64, score float64) models.QuestionResponse {
	return models.QuestionResponse{SessionID: session, QuestionID: question, Score: score}
}

func TestBuildResponseMatrixEmpty(t *testing.T) {
	m := BuildResponseMatrix(nil)
	if m == nil {
		t.Fatal("expected empty matrix, got nil")
	}
	if m.ItemCount() != 0 || m.RespondentCount() != 0 {
		t.Errorf("expected zero-size matrix, got %dx%d", m.RespondentCount(), m.ItemCount())
	}
}

func TestBuildResponseMatrixDichotomizes(t *testing.T) {
	responses := []models.QuestionResponse{
		resp("s1", 1, 0.5),  // exactly at threshold counts as correct
		resp("s1", 2, 0.49), // just below is incorrect
		resp("s2", 1, 1.0),
		resp("s2", 2, 0.0),
		resp("s3", 1, 0.0),
		resp("s3", 2, 0.8),
	}

	m := BuildResponseMatrix(responses)
	if m.RespondentCount() != 3 || m.ItemCount() != 2 {
		t.Fatalf("expected 3x2 matrix, got %dx%d", m.RespondentCount(), m.ItemCount())
	}

	// Sessions and items are sorted, so row 0 is s1 and column 0 is item 1.
	want := [][]bool{
		{true, false},
		{true, false},
		{false, true},
	}
	for j, row := range want {
		for i, v := range row {
			if m.Responses[j][i] != v {
				t.Errorf("cell [%d][%d] = %v, want %v", j, i, m.Responses[j][i], v)
			}
		}
	}
}

func TestBuildResponseMatrixExcludesPartialCoverage(t *testing.T) {
	responses := []models.QuestionResponse{
		resp("s1", 1, 1.0),
		resp("s1", 2, 0.0),
		resp("s2", 1, 1.0), // s2 never answered item 2
		resp("s3", 1, 0.0),
		resp("s3", 2, 1.0),
	}

	m := BuildResponseMatrix(responses)
	if m.RespondentCount() != 2 {
		t.Errorf("expected partial-coverage respondent excluded, got %d rows", m.RespondentCount())
	}
	if m.ItemCount() != 2 {
		t.Errorf("expected both items kept, got %d", m.ItemCount())
	}
}

func TestBuildResponseMatrixDropsExtremeItems(t *testing.T) {
	// Item 2 is answered correctly by everyone; item 1 splits the group.
	var responses []models.QuestionResponse
	for i := 0; i < 10; i++ {
		session := string(rune('a' + i))
		score := 0.0
		if i%2 == 0 {
			score = 1.0
		}
		responses = append(responses, resp(session, 1, score))
		responses = append(responses, resp(session, 2, 1.0))
	}

	m := BuildResponseMatrix(responses)
	if m.ItemCount() != 1 {
		t.Fatalf("expected universally-correct item dropped, got %d items", m.ItemCount())
	}
	if m.QuestionIDs[0] != 1 {
		t.Errorf("expected item 1 to survive, got %d", m.QuestionIDs[0])
	}
	if m.RespondentCount() != 10 {
		t.Errorf("expected all respondents kept, got %d", m.RespondentCount())
	}
}

func TestBuildResponseMatrixAllItemsExtreme(t *testing.T) {
	// A single item everyone answers correctly leaves nothing to calibrate.
	var responses []models.QuestionResponse
	for i := 0; i < 20; i++ {
		responses = append(responses, resp(string(rune('a'+i)), 1, 1.0))
	}

	m := BuildResponseMatrix(responses)
	if m.ItemCount() != 0 {
		t.Errorf("expected empty matrix when every item is extreme, got %d items", m.ItemCount())
	}
}

func TestBuildResponseMatrixDuplicateKeepsLatest(t *testing.T) {
	responses := []models.QuestionResponse{
		resp("s1", 1, 0.0),
		resp("s1", 1, 1.0), // re-answered; latest wins
		resp("s1", 2, 0.0),
		resp("s2", 1, 0.0),
		resp("s2", 2, 1.0),
	}

	m := BuildResponseMatrix(responses)
	if m.RespondentCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", m.RespondentCount())
	}
	if !m.Responses[0][0] {
		t.Error("expected the later duplicate response to win")
	}
}
