package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InterviewTurn struct {
	Id              uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	SessionId       uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_interview_turns_session_seq"`
	Sequence        int64     `gorm:"not null;uniqueIndex:idx_interview_turns_session_seq"`
	Role            string    `gorm:"type:varchar(16);not null"`
	Content         string    `gorm:"type:text;not null"`
	Competency      *string   `gorm:"type:varchar(64)"`
	StarTags        datatypes.JSON
	Final           bool      `gorm:"not null"`
	Timestamp       time.Time `gorm:"not null;index"`
	AudioDurationMs *int64
	AudioConfidence *float64
}

func (InterviewTurn) TableName() string {
	return "interview_turns"
}
