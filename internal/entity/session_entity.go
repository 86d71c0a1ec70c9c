package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobContext struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description"`
}

type CompetencyType string

const (
	CompetencyCommunication  CompetencyType = "communication"
	CompetencyProblemSolving CompetencyType = "problem_solving"
	CompetencyOwnership      CompetencyType = "ownership"
	CompetencyTeamwork       CompetencyType = "teamwork"
	CompetencyRoleFit        CompetencyType = "role_fit"
)

// Competency weight is a positive multiplier. It is not capped at 1 so that
// role_fit can carry extra emphasis.
type Competency struct {
	Type        CompetencyType `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Weight      float64        `json:"weight"`
}

func DefaultCompetencies() []Competency {
	return []Competency{
		{Type: CompetencyCommunication, Name: "Communication", Description: "Clarity, structure, and engagement in verbal communication", Weight: 1.0},
		{Type: CompetencyProblemSolving, Name: "Problem Solving", Description: "Analytical thinking, approach to challenges, and solution development", Weight: 1.0},
		{Type: CompetencyOwnership, Name: "Ownership", Description: "Initiative, accountability, and results-driven mindset", Weight: 1.0},
		{Type: CompetencyTeamwork, Name: "Teamwork", Description: "Collaboration, leadership, and influence with others", Weight: 1.0},
		{Type: CompetencyRoleFit, Name: "Role Fit", Description: "Technical skills, domain knowledge, and role-specific competencies", Weight: 1.2},
	}
}

type Session struct {
	Id           uuid.UUID              `json:"id"`
	UserId       *uuid.UUID             `json:"userId,omitempty"`
	Job          JobContext             `json:"job"`
	Competencies []Competency           `json:"competencies"`
	Status       SessionStatus          `json:"status"`
	CreatedAt    time.Time              `json:"createdAt"`
	StartedAt    *time.Time             `json:"startedAt,omitempty"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.UserId != nil {
		id := *s.UserId
		c.UserId = &id
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.Competencies != nil {
		c.Competencies = append([]Competency(nil), s.Competencies...)
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Competency returns the session's competency of the given type.
func (s *Session) Competency(t CompetencyType) (Competency, bool) {
	for _, c := range s.Competencies {
		if c.Type == t {
			return c, true
		}
	}
	return Competency{}, false
}

// SessionTransition is one entry of a session's audit trail.
type SessionTransition struct {
	Id         uuid.UUID     `json:"id"`
	SessionId  uuid.UUID     `json:"sessionId"`
	From       SessionStatus `json:"from"`
	To         SessionStatus `json:"to"`
	Event      SessionEvent  `json:"event"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}
