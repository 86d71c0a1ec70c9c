package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InterviewReport struct {
	Id                    uuid.UUID      `gorm:"type:varchar(36);primaryKey"`
	SessionId             uuid.UUID      `gorm:"type:varchar(36);not null;uniqueIndex"`
	OverallScore          float64        `gorm:"not null"`
	OverallSummary        string         `gorm:"type:text;not null"`
	CompetencyAssessments datatypes.JSON `gorm:"not null"`
	NextSteps             datatypes.JSON `gorm:"not null"`
	RecommendedResources  datatypes.JSON
	CreatedAt             time.Time      `gorm:"not null"`
}

func (InterviewReport) TableName() string {
	return "interview_reports"
}

// All lists every table owned by the interview core, in migration order.
func All() []interface{} {
	return []interface{}{
		&InterviewSession{},
		&SessionTransition{},
		&InterviewTurn{},
		&InterviewScore{},
		&SessionMetric{},
		&InterviewReport{},
	}
}
