package scoring

import (
	"regexp"
	"strings"

	"ai-interviewer-be/internal/entity"
)

var starPatterns = map[entity.StarElement]*regexp.Regexp{
	entity.StarSituation: regexp.MustCompile(`\b(situation|context|background|at the time|when i was|while i was|at my (previous|last|current|old) (job|company|role|team)|in my (previous|last|current) role|we were|our team (was|had)|there was|the project|last year|a few years ago)\b`),
	entity.StarTask:      regexp.MustCompile(`\b(my (role|responsibility|task|job|goal|assignment) was|i was (responsible|tasked|asked|assigned|in charge)|responsible for|needed to|had to|goal was|objective|challenge was|expected to)\b`),
	entity.StarAction:    regexp.MustCompile(`\b(i (decided|implemented|built|created|designed|led|organized|organised|wrote|analyzed|analysed|proposed|introduced|set up|reached out|started|took|fixed|refactored|coordinated|negotiated|talked|met|scheduled|automated|migrated|prioritized|prioritised|investigated|mentored)|my approach|first,? i|then i|so i|next,? i)\b`),
	entity.StarResult:    regexp.MustCompile(`\b(as a result|resulted|result|outcome|in the end|eventually|ultimately|led to|delivered|launched|achieved|increased|reduced|decreased|improved|saved|grew|shipped)\b|%`),
}

var (
	quantifiedPattern = regexp.MustCompile(`(\d+(\.\d+)?\s*(%|percent|x\b|times|hours|days|weeks|months|users|customers|clients|ms|seconds|minutes|k\b|million|people|engineers))|(\$\s?\d+)`)
	examplePattern    = regexp.MustCompile(`\b(for example|for instance|specifically|such as|one time|a time when|in one case)\b`)
)

// DetectStar reports which STAR elements the content evidences.
func DetectStar(content string) entity.StarCompleteness {
	lower := strings.ToLower(content)
	var star entity.StarCompleteness
	for _, e := range entity.StarElements {
		if starPatterns[e].MatchString(lower) {
			star.Set(e)
		}
	}
	return star
}

func isQuantified(lower string) bool {
	return quantifiedPattern.MatchString(lower)
}

func hasSpecificExample(lower string) bool {
	return examplePattern.MatchString(lower)
}
