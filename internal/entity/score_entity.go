package entity

import (
	"time"

	"github.com/google/uuid"
)

type StarCompleteness struct {
	Situation bool `json:"situation"`
	Task      bool `json:"task"`
	Action    bool `json:"action"`
	Result    bool `json:"result"`
}

func (s StarCompleteness) Has(e StarElement) bool {
	switch e {
	case StarSituation:
		return s.Situation
	case StarTask:
		return s.Task
	case StarAction:
		return s.Action
	case StarResult:
		return s.Result
	}
	return false
}

func (s *StarCompleteness) Set(e StarElement) {
	switch e {
	case StarSituation:
		s.Situation = true
	case StarTask:
		s.Task = true
	case StarAction:
		s.Action = true
	case StarResult:
		s.Result = true
	}
}

func (s StarCompleteness) Count() int {
	n := 0
	for _, e := range StarElements {
		if s.Has(e) {
			n++
		}
	}
	return n
}

func (s StarCompleteness) Missing() []StarElement {
	var out []StarElement
	for _, e := range StarElements {
		if !s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// Score is the evaluation of one turn against one competency. Value is on
// the 1..5 rubric scale. There is at most one Score per (TurnId, Competency).
type Score struct {
	Id             uuid.UUID        `json:"id"`
	SessionId      uuid.UUID        `json:"sessionId"`
	TurnId         uuid.UUID        `json:"turnId"`
	Competency     CompetencyType   `json:"competency"`
	Value          int              `json:"value"`
	Rationale      string           `json:"rationale"`
	ImprovementTip string           `json:"improvementTip,omitempty"`
	Star           StarCompleteness `json:"starCompleteness"`
	RubricVersion  string           `json:"rubricVersion"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ScoreID derives the identifier of the score for (turnID, competency) so
// that re-scoring the same pair lands on the same record.
func ScoreID(turnID uuid.UUID, competency CompetencyType) uuid.UUID {
	return uuid.NewSHA1(turnID, []byte(competency))
}

// FollowUpSignal tells the question generator that a turn needs a
// clarifying question. It is advisory only.
type FollowUpSignal struct {
	TurnId          uuid.UUID     `json:"turnId"`
	Required        bool          `json:"required"`
	Reasons         []string      `json:"reasons,omitempty"`
	MissingElements []StarElement `json:"missingElements,omitempty"`
	Probes          []string      `json:"probes,omitempty"`
}
