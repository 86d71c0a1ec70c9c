package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InterviewScore struct {
	Id               uuid.UUID      `gorm:"type:varchar(36);primaryKey"`
	SessionId        uuid.UUID      `gorm:"type:varchar(36);not null;index"`
	TurnId           uuid.UUID      `gorm:"type:varchar(36);not null;uniqueIndex:idx_interview_scores_turn_competency"`
	Competency       string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_interview_scores_turn_competency"`
	Score            int            `gorm:"not null"`
	Rationale        string         `gorm:"type:text;not null"`
	ImprovementTip   string         `gorm:"type:text"`
	StarCompleteness datatypes.JSON `gorm:"not null"`
	RubricVersion    string         `gorm:"type:varchar(16);not null"`
	CreatedAt        time.Time      `gorm:"not null"`
}

func (InterviewScore) TableName() string {
	return "interview_scores"
}
