package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talentlens/backend/internal/models"
)

func systemPrompt() string {
	return `You are a psychometrician reviewing assessment questions for a competency testing platform. Given an item's statistical profile, write a short, concrete revision note (3-5 sentences) for the content team. Focus on what the numbers imply about the item, not on restating them.`
}

// BuildItemPrompt renders an item's statistical profile for the advisor.
func BuildItemPrompt(view *models.ItemStatisticsView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Item %d statistics:\n", view.QuestionID)
	fmt.Fprintf(&b, "- responses: %d\n", view.ResponseCount)
	fmt.Fprintf(&b, "- validity status: %s\n", view.ValidityStatus)

	if view.DifficultyIndex != nil {
		fmt.Fprintf(&b, "- difficulty index (p-value): %.3f (flag: %s)\n", *view.DifficultyIndex, view.DifficultyFlag)
	}
	if view.DiscriminationIndex != nil {
		fmt.Fprintf(&b, "- discrimination (point-biserial): %.3f (flag: %s)\n", *view.DiscriminationIndex, view.DiscriminationFlag)
	}
	if view.PreviousDiscriminationIndex != nil {
		fmt.Fprintf(&b, "- previous discrimination: %.3f\n", *view.PreviousDiscriminationIndex)
	}
	if view.IRTDiscrimination != nil && view.IRTDifficulty != nil {
		fmt.Fprintf(&b, "- IRT parameters: a=%.3f b=%.3f\n", *view.IRTDiscrimination, *view.IRTDifficulty)
	}

	if len(view.DistractorEfficiency) > 0 {
		optionIDs := make([]string, 0, len(view.DistractorEfficiency))
		for id := range view.DistractorEfficiency {
			optionIDs = append(optionIDs, id)
		}
		sort.Strings(optionIDs)
		b.WriteString("- distractor selection rates:\n")
		for _, id := range optionIDs {
			fmt.Fprintf(&b, "  - option %s: %.3f\n", id, view.DistractorEfficiency[id])
		}
	}

	b.WriteString("\nWrite the revision note.")
	return b.String()
}
