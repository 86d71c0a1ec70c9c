package scoring

import "ai-interviewer-be/internal/entity"

const (
	MinScore = 1
	MaxScore = 5
)

var rubricLabels = map[int]string{
	1: "Needs Significant Improvement",
	2: "Below Expectations",
	3: "Meets Expectations",
	4: "Exceeds Expectations",
	5: "Outstanding",
}

// RubricLabel returns the label of a 1..5 value, or "" when out of range.
func RubricLabel(value int) string {
	return rubricLabels[value]
}

// starProbes holds the clarifying questions asked when an element is missing.
// The first probe of each element is the one attached to a follow-up signal.
var starProbes = map[entity.StarElement][]string{
	entity.StarSituation: {
		"Can you tell me more about the context?",
		"What was the situation or setting?",
		"Help me understand the background.",
	},
	entity.StarTask: {
		"What was your specific role or responsibility?",
		"What were you tasked with accomplishing?",
		"What was expected of you?",
	},
	entity.StarAction: {
		"What specific steps did you take?",
		"How did you approach this challenge?",
		"What actions did you personally take?",
	},
	entity.StarResult: {
		"What was the outcome or result?",
		"How did you measure success?",
		"What impact did your actions have?",
	},
}

func Probes(e entity.StarElement) []string {
	return append([]string(nil), starProbes[e]...)
}

var starTips = map[entity.StarElement]string{
	entity.StarSituation: "Open with the context: where you were, what was happening and why it mattered.",
	entity.StarTask:      "Make your own responsibility explicit so the interviewer knows what you owned.",
	entity.StarAction:    "Walk through the concrete steps you personally took rather than what the team did.",
	entity.StarResult:    "Close with the outcome of your actions, ideally with a measurable result.",
}
