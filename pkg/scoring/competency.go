package scoring

import (
	"regexp"

	"ai-interviewer-be/internal/entity"
)

// competencyEvidence matches vocabulary that ties an answer to a competency.
// Competencies without an entry are judged on structure alone.
var competencyEvidence = map[entity.CompetencyType]*regexp.Regexp{
	entity.CompetencyCommunication:  regexp.MustCompile(`\b(explain(ed)?|present(ed)?|communicat\w*|wrote|document\w*|stakeholders?|listen(ed)?|align(ed)?|clarif\w*|feedback)\b`),
	entity.CompetencyProblemSolving: regexp.MustCompile(`\b(problem|root cause|debug\w*|analy[sz]\w*|investigat\w*|hypothes\w*|trade-?offs?|solution|solved|diagnos\w*|approach)\b`),
	entity.CompetencyOwnership:      regexp.MustCompile(`\b(i owned|ownership|took (the )?initiative|accountab\w*|responsib\w*|i decided|i led|on my own|volunteered|end to end|end-to-end)\b`),
	entity.CompetencyTeamwork:       regexp.MustCompile(`\b(team(mates?)?|colleagues?|together|collaborat\w*|we|pair(ed)?|mentor\w*|helped|support(ed)?|cross-functional)\b`),
	entity.CompetencyRoleFit:        regexp.MustCompile(`\b(system|architecture|api|database|service|deploy\w*|code|design|performance|scal\w*|test\w*|infrastructure|product|customer|data)\b`),
}

func hasCompetencyEvidence(c entity.CompetencyType, lower string) bool {
	p, ok := competencyEvidence[c]
	if !ok {
		return true
	}
	return p.MatchString(lower)
}
