package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InterviewSession struct {
	Id             uuid.UUID      `gorm:"type:varchar(36);primaryKey"`
	UserId         *uuid.UUID     `gorm:"type:varchar(36);index"`
	JobTitle       string         `gorm:"type:varchar(255);not null"`
	JobCompany     string         `gorm:"type:varchar(255)"`
	JobDescription string         `gorm:"type:text;not null"`
	Competencies   datatypes.JSON `gorm:"not null"`
	Status         string         `gorm:"type:varchar(32);not null;index"`
	CreatedAt      time.Time      `gorm:"not null"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
	Metadata       datatypes.JSONMap
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

type SessionTransition struct {
	Id         uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	SessionId  uuid.UUID `gorm:"type:varchar(36);not null;index"`
	FromStatus string    `gorm:"type:varchar(32);not null"`
	ToStatus   string    `gorm:"type:varchar(32);not null"`
	Event      string    `gorm:"type:varchar(32);not null"`
	Reason     string    `gorm:"type:text"`
	OccurredAt time.Time `gorm:"not null;index"`
}

func (SessionTransition) TableName() string {
	return "session_transitions"
}
