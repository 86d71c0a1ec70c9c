// Package latency timestamps pipeline hand-offs, derives stage latencies,
// reports budget breaches and detects barge-in.
package latency

import (
	"fmt"
	"sync"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

// Budgets are design targets. Exceeding one produces a Breach, never an error.
type Budgets struct {
	EarToMouth   time.Duration
	TTSStart     time.Duration
	BargeIn      time.Duration
	RoundTrip    time.Duration
	AvatarRender time.Duration
	// AvatarBreachTrip consecutive avatar breaches switch a session to audio-only.
	AvatarBreachTrip int
}

func DefaultBudgets() Budgets {
	return Budgets{
		EarToMouth:       400 * time.Millisecond,
		TTSStart:         300 * time.Millisecond,
		BargeIn:          150 * time.Millisecond,
		RoundTrip:        1200 * time.Millisecond,
		AvatarRender:     300 * time.Millisecond,
		AvatarBreachTrip: 3,
	}
}

const (
	MetricEarToMouth   = "ear_to_mouth"
	MetricTTSStart     = "tts_start"
	MetricBargeIn      = "barge_in"
	MetricRoundTrip    = "round_trip"
	MetricAvatarRender = "avatar_render"
)

type Breach struct {
	SessionId  uuid.UUID     `json:"sessionId"`
	Metric     string        `json:"metric"`
	Observed   time.Duration `json:"observed"`
	Budget     time.Duration `json:"budget"`
	AudioOnly  bool          `json:"audioOnly"`
	OccurredAt time.Time     `json:"occurredAt"`
}

type Option func(*Monitor)

func WithMetrics(m *Metrics) Option {
	return func(mon *Monitor) { mon.metrics = m }
}

// WithBreachHandler is called for every breach, outside the session lock.
func WithBreachHandler(fn func(Breach)) Option {
	return func(mon *Monitor) { mon.onBreach = fn }
}

// WithSampleHandler receives every completed turn sample, outside the session lock.
func WithSampleHandler(fn func(entity.LatencyMetrics)) Option {
	return func(mon *Monitor) { mon.onSample = fn }
}

func WithClock(now func() time.Time) Option {
	return func(mon *Monitor) { mon.now = now }
}

// Monitor keeps one tracker per session. Trackers are independent, so
// sessions never contend with each other.
type Monitor struct {
	budgets  Budgets
	trackers sync.Map // uuid.UUID -> *tracker
	metrics  *Metrics
	onBreach func(Breach)
	onSample func(entity.LatencyMetrics)
	now      func() time.Time
}

func NewMonitor(budgets Budgets, opts ...Option) *Monitor {
	m := &Monitor{
		budgets: budgets,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Budgets() Budgets {
	return m.budgets
}

func (m *Monitor) tracker(sessionID uuid.UUID) *tracker {
	if t, ok := m.trackers.Load(sessionID); ok {
		return t.(*tracker)
	}
	t, _ := m.trackers.LoadOrStore(sessionID, newTracker())
	return t.(*tracker)
}

// RecordStage marks a pipeline hand-off. candidate_audio_end opens a new
// turn; avatar_frame (tts_start in audio-only mode) closes it.
func (m *Monitor) RecordStage(sessionID uuid.UUID, stage entity.Stage, ts time.Time) error {
	if !stage.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown pipeline stage %q", stage))
	}
	if ts.IsZero() {
		ts = m.now()
	}

	t := m.tracker(sessionID)
	t.mu.Lock()
	var done []entity.StageLatencies
	if stage == entity.StageCandidateAudioEnd && t.has(entity.StageTTSStart) {
		// previous turn never rendered an avatar frame
		done = append(done, t.close())
	}
	t.mark(stage, ts)
	if stage == entity.StageAvatarFrame || (stage == entity.StageTTSStart && t.audioOnly) {
		done = append(done, t.close())
	}

	var breaches []Breach
	var samples []entity.LatencyMetrics
	for _, s := range done {
		breaches = append(breaches, m.evaluate(sessionID, t, s)...)
		samples = append(samples, t.add(sessionID, s, m.now().UTC()))
	}
	t.mu.Unlock()

	m.emit(breaches, samples)
	return nil
}

// RecordBargeIn records how long detection took from the qualifying point.
func (m *Monitor) RecordBargeIn(sessionID uuid.UUID, detection time.Duration) {
	if detection < 0 {
		detection = 0
	}
	m.metrics.bargeIn()
	m.metrics.observeStage(MetricBargeIn, detection.Seconds())

	t := m.tracker(sessionID)
	t.mu.Lock()
	t.bargeIns++
	t.bargeInSum += detection
	if detection > t.peak.BargeIn {
		t.peak.BargeIn = detection
	}
	var breaches []Breach
	if m.budgets.BargeIn > 0 && detection > m.budgets.BargeIn {
		t.breaches++
		breaches = append(breaches, m.breach(sessionID, t, MetricBargeIn, detection, m.budgets.BargeIn))
	}
	t.mu.Unlock()

	m.emit(breaches, nil)
}

// GetMetrics returns the session roll-up so far.
func (m *Monitor) GetMetrics(sessionID uuid.UUID) entity.LatencyMetrics {
	v, ok := m.trackers.Load(sessionID)
	if !ok {
		return entity.LatencyMetrics{SessionId: sessionID, Scope: entity.MetricsScopeSession, RecordedAt: m.now().UTC()}
	}
	t := v.(*tracker)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollup(sessionID, m.now().UTC())
}

func (m *Monitor) AudioOnly(sessionID uuid.UUID) bool {
	v, ok := m.trackers.Load(sessionID)
	if !ok {
		return false
	}
	t := v.(*tracker)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.audioOnly
}

// Flush returns the final roll-up and forgets the session.
func (m *Monitor) Flush(sessionID uuid.UUID) entity.LatencyMetrics {
	metrics := m.GetMetrics(sessionID)
	m.trackers.Delete(sessionID)
	return metrics
}

func (m *Monitor) evaluate(sessionID uuid.UUID, t *tracker, s entity.StageLatencies) []Breach {
	for stage, d := range map[string]time.Duration{
		"stt":              s.STT,
		"llm":              s.LLM,
		MetricTTSStart:     s.TTS,
		MetricAvatarRender: s.AvatarRender,
		MetricEarToMouth:   s.EarToMouth,
		MetricRoundTrip:    s.RoundTrip,
	} {
		if d > 0 {
			m.metrics.observeStage(stage, d.Seconds())
		}
	}

	var out []Breach
	check := func(metric string, observed, budget time.Duration) bool {
		if budget <= 0 || observed <= budget {
			return false
		}
		t.breaches++
		out = append(out, m.breach(sessionID, t, metric, observed, budget))
		return true
	}
	check(MetricEarToMouth, s.EarToMouth, m.budgets.EarToMouth)
	check(MetricTTSStart, s.TTS, m.budgets.TTSStart)
	check(MetricRoundTrip, s.RoundTrip, m.budgets.RoundTrip)

	if s.AvatarRender > 0 {
		if check(MetricAvatarRender, s.AvatarRender, m.budgets.AvatarRender) {
			t.avatarStreak++
			if !t.audioOnly && m.budgets.AvatarBreachTrip > 0 && t.avatarStreak >= m.budgets.AvatarBreachTrip {
				t.audioOnly = true
				m.metrics.degraded()
				out[len(out)-1].AudioOnly = true
			}
		} else {
			t.avatarStreak = 0
		}
	}
	return out
}

func (m *Monitor) breach(sessionID uuid.UUID, t *tracker, metric string, observed, budget time.Duration) Breach {
	m.metrics.breach(metric)
	return Breach{
		SessionId:  sessionID,
		Metric:     metric,
		Observed:   observed,
		Budget:     budget,
		AudioOnly:  t.audioOnly,
		OccurredAt: m.now().UTC(),
	}
}

func (m *Monitor) emit(breaches []Breach, samples []entity.LatencyMetrics) {
	if m.onBreach != nil {
		for _, b := range breaches {
			m.onBreach(b)
		}
	}
	if m.onSample != nil {
		for _, s := range samples {
			m.onSample(s)
		}
	}
}
