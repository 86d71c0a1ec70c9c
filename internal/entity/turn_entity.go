package entity

import (
	"time"

	"github.com/google/uuid"
)

type AudioMetadata struct {
	DurationMs int64   `json:"durationMs"`
	Confidence float64 `json:"confidence"`
}

// Turn is immutable once appended to the ledger.
type Turn struct {
	Id         uuid.UUID       `json:"id"`
	SessionId  uuid.UUID       `json:"sessionId"`
	Sequence   int64           `json:"sequence"`
	Role       TurnRole        `json:"role"`
	Content    string          `json:"content"`
	Competency *CompetencyType `json:"competency,omitempty"`
	StarTags   []StarElement   `json:"starTags,omitempty"`
	Final      bool            `json:"final"`
	Timestamp  time.Time       `json:"timestamp"`
	Audio      *AudioMetadata  `json:"audio,omitempty"`
}

func (t *Turn) Clone() *Turn {
	if t == nil {
		return nil
	}
	c := *t
	if t.Competency != nil {
		v := *t.Competency
		c.Competency = &v
	}
	if t.StarTags != nil {
		c.StarTags = append([]StarElement(nil), t.StarTags...)
	}
	if t.Audio != nil {
		a := *t.Audio
		c.Audio = &a
	}
	return &c
}
