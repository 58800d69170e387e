package processors

import (
	"fmt"

	"videoEventDetect/core"
)

// GenerateEditInstructions maps finalized events, already sorted ascending by
// start, to ordered cut directives. Pure transform: ids are 1-based ordinals
// and timestamps/confidence are copied verbatim from the source event.
func GenerateEditInstructions(events []core.Event) []core.EditInstruction {
	instructions := make([]core.EditInstruction, 0, len(events))
	for i, ev := range events {
		instructions = append(instructions, core.EditInstruction{
			ID:         fmt.Sprintf("edit_%d", i+1),
			Action:     core.ActionCut,
			StartTime:  ev.Start,
			EndTime:    ev.End,
			Confidence: ev.Confidence,
			Reason:     core.ReasonMatchesQuery,
		})
	}
	return instructions
}
