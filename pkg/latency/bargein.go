package latency

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type BargeInConfig struct {
	// Threshold is the voice-activity level, 0..1, counted as speech.
	Threshold float64
	// MinSpeech is how long activity must be sustained before interrupting.
	MinSpeech time.Duration
}

func DefaultBargeInConfig() BargeInConfig {
	return BargeInConfig{Threshold: 0.5, MinSpeech: 250 * time.Millisecond}
}

type BargeInEvent struct {
	SessionId  uuid.UUID `json:"sessionId"`
	Onset      time.Time `json:"onset"`
	DetectedAt time.Time `json:"detectedAt"`
}

// Detection is the delay between the activity qualifying as speech
// (onset + MinSpeech) and the interrupt being raised.
func (e BargeInEvent) Detection(minSpeech time.Duration) time.Duration {
	d := e.DetectedAt.Sub(e.Onset.Add(minSpeech))
	if d < 0 {
		return 0
	}
	return d
}

// BargeInDetector watches candidate voice activity while the interviewer is
// speaking. It holds no locks and never blocks: state lives in atomics, the
// deadline is armed with a runtime timer at onset, and events are handed
// over through a buffered channel that drops when full.
type BargeInDetector struct {
	sessionID uuid.UUID
	cfg       BargeInConfig

	speaking atomic.Bool
	onset    atomic.Int64 // unix nanos of the current activity run, 0 when silent
	last     atomic.Int64 // unix nanos of the latest sample above threshold
	fired    atomic.Bool

	events chan BargeInEvent
}

func NewBargeInDetector(sessionID uuid.UUID, cfg BargeInConfig) *BargeInDetector {
	if cfg.MinSpeech <= 0 {
		cfg.MinSpeech = DefaultBargeInConfig().MinSpeech
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultBargeInConfig().Threshold
	}
	return &BargeInDetector{
		sessionID: sessionID,
		cfg:       cfg,
		events:    make(chan BargeInEvent, 8),
	}
}

func (d *BargeInDetector) Config() BargeInConfig {
	return d.cfg
}

// Events delivers at most one event per speaking run.
func (d *BargeInDetector) Events() <-chan BargeInEvent {
	return d.events
}

// SetSpeaking enters or leaves the interviewer's speaking sub-state.
// Either way the current activity run is forgotten.
func (d *BargeInDetector) SetSpeaking(speaking bool) {
	d.onset.Store(0)
	d.fired.Store(false)
	d.speaking.Store(speaking)
}

func (d *BargeInDetector) Speaking() bool {
	return d.speaking.Load()
}

// ObserveLevel feeds one voice-activity sample. It reports whether this
// sample raised the interrupt.
func (d *BargeInDetector) ObserveLevel(level float64) bool {
	if !d.speaking.Load() || level < d.cfg.Threshold {
		d.onset.Store(0)
		return false
	}

	now := time.Now().UnixNano()
	d.last.Store(now)
	if d.onset.CompareAndSwap(0, now) {
		d.arm(now)
		return false
	}

	on := d.onset.Load()
	if on != 0 && time.Duration(now-on) >= d.cfg.MinSpeech {
		return d.fire(on)
	}
	return false
}

// maxSampleGap is how stale the latest loud sample may be for the armed
// timer to treat the run as still going.
const maxSampleGap = 100 * time.Millisecond

// arm raises the interrupt once MinSpeech has elapsed if the run started at
// onset is still going, without waiting for the next sample.
func (d *BargeInDetector) arm(onset int64) {
	time.AfterFunc(d.cfg.MinSpeech, func() {
		if !d.speaking.Load() || d.onset.Load() != onset {
			return
		}
		if time.Duration(time.Now().UnixNano()-d.last.Load()) > maxSampleGap {
			return
		}
		d.fire(onset)
	})
}

func (d *BargeInDetector) fire(onset int64) bool {
	if !d.fired.CompareAndSwap(false, true) {
		return false
	}
	ev := BargeInEvent{
		SessionId:  d.sessionID,
		Onset:      time.Unix(0, onset).UTC(),
		DetectedAt: time.Now().UTC(),
	}
	select {
	case d.events <- ev:
	default:
	}
	return true
}
