package psychometrics

import (
	"sort"

	"github.com/talentlens/backend/internal/irt"
	"github.com/talentlens/backend/internal/models"
)

// Matrix assembly thresholds.
const (
	// DichotomizationThreshold splits a normalized score into correct/incorrect
	// for IRT purposes.
	DichotomizationThreshold = 0.5

	// Items whose marginal proportion-correct falls outside
	// [ExtremeLowRate, ExtremeHighRate] cannot be calibrated reliably and are
	// dropped from the matrix.
	ExtremeLowRate  = 0.05
	ExtremeHighRate = 0.95
)

// BuildResponseMatrix assembles a dense dichotomous matrix from raw
// (session, question, score) triples for one competency. Respondents missing
// a response to any in-scope item are excluded entirely; items with extreme
// correct rates are then filtered out. The result may be empty — callers
// treat a zero-item matrix as insufficient data, not an error.
func BuildResponseMatrix(responses []models.QuestionResponse) *irt.ResponseMatrix {
	if len(responses) == 0 {
		return &irt.ResponseMatrix{}
	}

	itemSet := make(map[int64]bool)
	bySession := make(map[string]map[int64]bool)
	for _, r := range responses {
		itemSet[r.QuestionID] = true
		row, ok := bySession[r.SessionID]
		if !ok {
			row = make(map[int64]bool)
			bySession[r.SessionID] = row
		}
		// Duplicate responses keep the latest value in stream order.
		row[r.QuestionID] = r.Score >= DichotomizationThreshold
	}

	itemIDs := make([]int64, 0, len(itemSet))
	for id := range itemSet {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	sessions := make([]string, 0, len(bySession))
	for sid := range bySession {
		sessions = append(sessions, sid)
	}
	sort.Strings(sessions)

	// Keep only respondents with full coverage of the in-scope items.
	var rows [][]bool
	for _, sid := range sessions {
		answers := bySession[sid]
		if len(answers) < len(itemIDs) {
			continue
		}
		row := make([]bool, len(itemIDs))
		complete := true
		for i, qid := range itemIDs {
			v, ok := answers[qid]
			if !ok {
				complete = false
				break
			}
			row[i] = v
		}
		if complete {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return &irt.ResponseMatrix{}
	}

	// Drop extreme items.
	keep := make([]int, 0, len(itemIDs))
	for i := range itemIDs {
		correct := 0
		for _, row := range rows {
			if row[i] {
				correct++
			}
		}
		p := float64(correct) / float64(len(rows))
		if p >= ExtremeLowRate && p <= ExtremeHighRate {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return &irt.ResponseMatrix{}
	}

	keptIDs := make([]int64, len(keep))
	for n, i := range keep {
		keptIDs[n] = itemIDs[i]
	}
	keptRows := make([][]bool, len(rows))
	for r, row := range rows {
		kr := make([]bool, len(keep))
		for n, i := range keep {
			kr[n] = row[i]
		}
		keptRows[r] = kr
	}

	return &irt.ResponseMatrix{QuestionIDs: keptIDs, Responses: keptRows}
}
