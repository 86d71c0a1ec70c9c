package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionMetric struct {
	Id          uuid.UUID      `gorm:"type:varchar(36);primaryKey"`
	SessionId   uuid.UUID      `gorm:"type:varchar(36);not null;index"`
	Scope       string         `gorm:"type:varchar(16);not null"`
	Average     datatypes.JSON `gorm:"not null"`
	Peak        datatypes.JSON `gorm:"not null"`
	SampleCount int            `gorm:"not null;default:0"`
	Breaches    int            `gorm:"not null;default:0"`
	AudioOnly   bool           `gorm:"not null"`
	RecordedAt  time.Time      `gorm:"not null;index"`
}

func (SessionMetric) TableName() string {
	return "session_metrics"
}
