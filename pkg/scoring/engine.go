// Package scoring evaluates finalized candidate turns against the STAR
// structure and a 1..5 competency rubric. Scoring is a pure function of the
// turn content, the competency set and the rubric version.
package scoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

type Config struct {
	// FollowUpMinChars is the answer length below which a follow-up is requested.
	FollowUpMinChars int
	RubricVersion    string
}

type Result struct {
	Star     entity.StarCompleteness
	Scores   []entity.Score
	FollowUp entity.FollowUpSignal
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.FollowUpMinChars <= 0 {
		cfg.FollowUpMinChars = 80
	}
	if cfg.RubricVersion == "" {
		cfg.RubricVersion = "v1"
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) RubricVersion() string {
	return e.cfg.RubricVersion
}

// ScoreTurn scores turn against every applicable competency. A turn tagged
// with a competency is scored against that competency only. Scores carry a
// deterministic id per (turn, competency); CreatedAt is left to the caller.
func (e *Engine) ScoreTurn(turn *entity.Turn, competencies []entity.Competency) (*Result, error) {
	if turn == nil || !turn.Final || strings.TrimSpace(turn.Content) == "" {
		return nil, apperror.ErrIncompleteTurn
	}

	content := strings.TrimSpace(turn.Content)
	lower := strings.ToLower(content)

	star := DetectStar(content)
	for _, tag := range turn.StarTags {
		star.Set(tag)
	}

	f := features{
		star:       star,
		words:      len(strings.Fields(content)),
		quantified: isQuantified(lower),
		example:    hasSpecificExample(lower),
	}

	applicable := applicableCompetencies(turn, competencies)
	scores := make([]entity.Score, 0, len(applicable))
	for _, c := range applicable {
		relevant := hasCompetencyEvidence(c.Type, lower)
		value := f.value(relevant)
		scores = append(scores, entity.Score{
			Id:             entity.ScoreID(turn.Id, c.Type),
			SessionId:      turn.SessionId,
			TurnId:         turn.Id,
			Competency:     c.Type,
			Value:          value,
			Rationale:      f.rationale(c, value, relevant),
			ImprovementTip: f.tip(c, value, relevant),
			Star:           star,
			RubricVersion:  e.cfg.RubricVersion,
		})
	}

	return &Result{
		Star:     star,
		Scores:   scores,
		FollowUp: e.followUp(turn.Id, content, star),
	}, nil
}

func applicableCompetencies(turn *entity.Turn, competencies []entity.Competency) []entity.Competency {
	if turn.Competency == nil {
		return competencies
	}
	for _, c := range competencies {
		if c.Type == *turn.Competency {
			return []entity.Competency{c}
		}
	}
	return []entity.Competency{{Type: *turn.Competency, Name: string(*turn.Competency), Weight: 1}}
}

func (e *Engine) followUp(turnID uuid.UUID, content string, star entity.StarCompleteness) entity.FollowUpSignal {
	signal := entity.FollowUpSignal{TurnId: turnID}

	if n := utf8.RuneCountInString(content); n < e.cfg.FollowUpMinChars {
		signal.Reasons = append(signal.Reasons, fmt.Sprintf("answer is %d characters, below the %d character minimum", n, e.cfg.FollowUpMinChars))
	}
	if star.Count() < 2 {
		signal.Reasons = append(signal.Reasons, fmt.Sprintf("only %d of 4 STAR elements detected", star.Count()))
	}
	if len(signal.Reasons) == 0 {
		return signal
	}

	signal.Required = true
	signal.MissingElements = star.Missing()
	for _, m := range signal.MissingElements {
		signal.Probes = append(signal.Probes, starProbes[m][0])
	}
	if len(signal.Probes) == 0 {
		signal.Probes = []string{"Can you be more specific and walk me through a concrete example?"}
	}
	return signal
}

type features struct {
	star       entity.StarCompleteness
	words      int
	quantified bool
	example    bool
}

// value applies the rubric: 1 is missing critical content, 3 adequate with
// relevant detail, 5 comprehensive with specific quantified examples.
func (f features) value(relevant bool) int {
	count := f.star.Count()
	var v int
	switch {
	case count == 0 || f.words < 8:
		v = 1
	case count == 1:
		v = 2
	case count == 2:
		v = 2
		if f.words >= 40 {
			v = 3
		}
	case count == 3:
		v = 3
	default:
		v = 4
	}
	if f.quantified && count >= 3 {
		v++
	}
	if v == 4 && count == 4 && f.example && f.words >= 120 {
		v++
	}
	if !relevant && v > 2 {
		v--
	}
	return clamp(v)
}

func (f features) rationale(c entity.Competency, value int, relevant bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/5) for %s: ", RubricLabel(value), value, competencyName(c))
	fmt.Fprintf(&b, "%d of 4 STAR elements", f.star.Count())
	if present := presentElements(f.star); len(present) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(present, ", "))
	}
	fmt.Fprintf(&b, ", %d words", f.words)
	if f.quantified {
		b.WriteString(", quantified impact")
	}
	if f.example {
		b.WriteString(", specific example")
	}
	if !relevant {
		fmt.Fprintf(&b, ", little evidence of %s", strings.ToLower(competencyName(c)))
	}
	b.WriteString(".")
	return b.String()
}

func (f features) tip(c entity.Competency, value int, relevant bool) string {
	if value >= MaxScore {
		return ""
	}
	if missing := f.star.Missing(); len(missing) > 0 {
		return starTips[missing[0]]
	}
	if !f.quantified {
		return "Quantify the impact with numbers such as time saved, percentages or users affected."
	}
	if !relevant {
		return fmt.Sprintf("Tie the example more directly to %s.", strings.ToLower(competencyName(c)))
	}
	return "Add a second specific example and reflect on what you would do differently."
}

func presentElements(star entity.StarCompleteness) []string {
	var out []string
	for _, e := range entity.StarElements {
		if star.Has(e) {
			out = append(out, string(e))
		}
	}
	return out
}

func competencyName(c entity.Competency) string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.Type)
}

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
