package wizard

import (
	"strings"

	"plantdoc/internal/model"
)

// BuildTranscript formats responses for the analysis service:
//
//	Plant: <name>
//
//	Q: <question>
//	A: <answer>
//
// Responses must already be in question order.
func BuildTranscript(plantName string, responses []model.Response) string {
	parts := make([]string, 0, len(responses))
	for _, r := range responses {
		parts = append(parts, "Q: "+r.QuestionText+"\nA: "+r.AnswerText)
	}
	head := "Plant: " + plantName
	if len(parts) == 0 {
		return head
	}
	return head + "\n\n" + strings.Join(parts, "\n\n")
}
