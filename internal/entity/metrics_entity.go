package entity

import (
	"time"

	"github.com/google/uuid"
)

// StageLatencies holds named pipeline latencies. A zero value means the
// stage was not observed.
type StageLatencies struct {
	EarToMouth   time.Duration `json:"earToMouth"`
	STT          time.Duration `json:"stt"`
	LLM          time.Duration `json:"llm"`
	TTS          time.Duration `json:"tts"`
	AvatarRender time.Duration `json:"avatarRender"`
	BargeIn      time.Duration `json:"bargeIn"`
	RoundTrip    time.Duration `json:"roundTrip"`
}

type MetricsScope string

const (
	MetricsScopeTurn    MetricsScope = "turn"
	MetricsScopeSession MetricsScope = "session"
)

// LatencyMetrics is either one turn sample (Average and Peak are the sample
// itself) or the session roll-up.
type LatencyMetrics struct {
	Id          uuid.UUID      `json:"id"`
	SessionId   uuid.UUID      `json:"sessionId"`
	Scope       MetricsScope   `json:"scope"`
	Average     StageLatencies `json:"average"`
	Peak        StageLatencies `json:"peak"`
	SampleCount int            `json:"sampleCount"`
	Breaches    int            `json:"breaches"`
	AudioOnly   bool           `json:"audioOnly"`
	RecordedAt  time.Time      `json:"recordedAt"`
}
