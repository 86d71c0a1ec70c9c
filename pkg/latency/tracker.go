package latency

import (
	"sync"
	"time"

	"ai-interviewer-be/internal/entity"

	"github.com/google/uuid"
)

type tracker struct {
	mu sync.Mutex

	// hand-offs of the current turn
	at map[entity.Stage]time.Time

	samples    int
	sum        entity.StageLatencies
	counts     [6]int // earToMouth, stt, llm, tts, avatar, roundTrip
	peak       entity.StageLatencies
	bargeIns   int
	bargeInSum time.Duration

	breaches     int
	avatarStreak int
	audioOnly    bool
}

func newTracker() *tracker {
	return &tracker{at: make(map[entity.Stage]time.Time)}
}

func (t *tracker) mark(stage entity.Stage, ts time.Time) {
	if stage == entity.StageCandidateAudioEnd {
		t.reset()
	}
	t.at[stage] = ts
}

func (t *tracker) has(stage entity.Stage) bool {
	_, ok := t.at[stage]
	return ok
}

func (t *tracker) reset() {
	t.at = make(map[entity.Stage]time.Time)
}

func (t *tracker) span(from, to entity.Stage) time.Duration {
	if !t.has(from) || !t.has(to) {
		return 0
	}
	d := t.at[to].Sub(t.at[from])
	if d < 0 {
		return 0
	}
	return d
}

// close derives the stage latencies of the current turn and clears it.
// Ear-to-mouth runs from the end of candidate audio (or the STT result when
// audio end was not observed) to the first synthesized speech. Round trip
// runs from candidate audio end to the first avatar frame, or to TTS start
// when no frame was rendered.
func (t *tracker) close() entity.StageLatencies {
	s := entity.StageLatencies{
		STT:          t.span(entity.StageCandidateAudioEnd, entity.StageSTTResult),
		LLM:          t.span(entity.StageSTTResult, entity.StageLLMResponse),
		TTS:          t.span(entity.StageLLMResponse, entity.StageTTSStart),
		AvatarRender: t.span(entity.StageTTSStart, entity.StageAvatarFrame),
		EarToMouth:   t.span(entity.StageCandidateAudioEnd, entity.StageTTSStart),
	}
	if !t.has(entity.StageCandidateAudioEnd) {
		s.EarToMouth = t.span(entity.StageSTTResult, entity.StageTTSStart)
	}
	if t.has(entity.StageAvatarFrame) {
		s.RoundTrip = t.span(entity.StageCandidateAudioEnd, entity.StageAvatarFrame)
	} else {
		s.RoundTrip = t.span(entity.StageCandidateAudioEnd, entity.StageTTSStart)
	}
	t.reset()
	return s
}

func (t *tracker) add(sessionID uuid.UUID, s entity.StageLatencies, now time.Time) entity.LatencyMetrics {
	t.samples++
	fields := []struct {
		v    time.Duration
		sum  *time.Duration
		peak *time.Duration
	}{
		{s.EarToMouth, &t.sum.EarToMouth, &t.peak.EarToMouth},
		{s.STT, &t.sum.STT, &t.peak.STT},
		{s.LLM, &t.sum.LLM, &t.peak.LLM},
		{s.TTS, &t.sum.TTS, &t.peak.TTS},
		{s.AvatarRender, &t.sum.AvatarRender, &t.peak.AvatarRender},
		{s.RoundTrip, &t.sum.RoundTrip, &t.peak.RoundTrip},
	}
	for i, f := range fields {
		if f.v <= 0 {
			continue
		}
		t.counts[i]++
		*f.sum += f.v
		if f.v > *f.peak {
			*f.peak = f.v
		}
	}

	return entity.LatencyMetrics{
		Id:          uuid.New(),
		SessionId:   sessionID,
		Scope:       entity.MetricsScopeTurn,
		Average:     s,
		Peak:        s,
		SampleCount: 1,
		Breaches:    t.breaches,
		AudioOnly:   t.audioOnly,
		RecordedAt:  now,
	}
}

func (t *tracker) rollup(sessionID uuid.UUID, now time.Time) entity.LatencyMetrics {
	avg := func(sum time.Duration, n int) time.Duration {
		if n == 0 {
			return 0
		}
		return sum / time.Duration(n)
	}
	return entity.LatencyMetrics{
		Id:        uuid.New(),
		SessionId: sessionID,
		Scope:     entity.MetricsScopeSession,
		Average: entity.StageLatencies{
			EarToMouth:   avg(t.sum.EarToMouth, t.counts[0]),
			STT:          avg(t.sum.STT, t.counts[1]),
			LLM:          avg(t.sum.LLM, t.counts[2]),
			TTS:          avg(t.sum.TTS, t.counts[3]),
			AvatarRender: avg(t.sum.AvatarRender, t.counts[4]),
			RoundTrip:    avg(t.sum.RoundTrip, t.counts[5]),
			BargeIn:      avg(t.bargeInSum, t.bargeIns),
		},
		Peak:        t.peak,
		SampleCount: t.samples,
		Breaches:    t.breaches,
		AudioOnly:   t.audioOnly,
		RecordedAt:  now,
	}
}
