package entity

import (
	"time"

	"github.com/google/uuid"
)

type CompetencyAssessment struct {
	Competency   CompetencyType `json:"competency"`
	AverageScore float64        `json:"averageScore"`
	Summary      string         `json:"summary"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
}

// Report is derived from a session's turns and scores.
type Report struct {
	Id                    uuid.UUID              `json:"id"`
	SessionId             uuid.UUID              `json:"sessionId"`
	OverallScore          float64                `json:"overallScore"`
	OverallSummary        string                 `json:"overallSummary"`
	CompetencyAssessments []CompetencyAssessment `json:"competencyAssessments"`
	NextSteps             []string               `json:"nextSteps"`
	RecommendedResources  []string               `json:"recommendedResources,omitempty"`
	CreatedAt             time.Time              `json:"createdAt"`
}
