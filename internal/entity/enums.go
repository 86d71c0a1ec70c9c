package entity

import (
	"encoding/json"
	"fmt"
)

type SessionStatus string

const (
	SessionStatusCreated    SessionStatus = "created"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusAbandoned  SessionStatus = "abandoned"
	SessionStatusError      SessionStatus = "error"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusCreated, SessionStatusInProgress, SessionStatusCompleted, SessionStatusAbandoned, SessionStatusError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned || s == SessionStatusError
}

func (s *SessionStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(s), func(v string) bool { return SessionStatus(v).Valid() }, "session status")
}

// SessionEvent drives the session state machine.
type SessionEvent string

const (
	SessionEventStart       SessionEvent = "start"
	SessionEventComplete    SessionEvent = "complete"
	SessionEventAbandon     SessionEvent = "abandon"
	SessionEventIdleTimeout SessionEvent = "idle_timeout"
	SessionEventFail        SessionEvent = "fail"
)

func (e SessionEvent) Valid() bool {
	switch e {
	case SessionEventStart, SessionEventComplete, SessionEventAbandon, SessionEventIdleTimeout, SessionEventFail:
		return true
	}
	return false
}

// FinishReason is the reason carried by an explicit finish signal.
type FinishReason string

const (
	FinishReasonCompleted FinishReason = "completed"
	FinishReasonAbandoned FinishReason = "abandoned"
	FinishReasonError     FinishReason = "error"
)

func (r FinishReason) Valid() bool {
	return r == FinishReasonCompleted || r == FinishReasonAbandoned || r == FinishReasonError
}

func (r FinishReason) Event() SessionEvent {
	switch r {
	case FinishReasonAbandoned:
		return SessionEventAbandon
	case FinishReasonError:
		return SessionEventFail
	default:
		return SessionEventComplete
	}
}

func (r *FinishReason) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(r), func(v string) bool { return FinishReason(v).Valid() }, "finish reason")
}

type TurnRole string

const (
	TurnRoleInterviewer TurnRole = "interviewer"
	TurnRoleCandidate   TurnRole = "candidate"
	TurnRoleSystem      TurnRole = "system"
)

func (r TurnRole) Valid() bool {
	return r == TurnRoleInterviewer || r == TurnRoleCandidate || r == TurnRoleSystem
}

func (r *TurnRole) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(r), func(v string) bool { return TurnRole(v).Valid() }, "turn role")
}

type StarElement string

const (
	StarSituation StarElement = "situation"
	StarTask      StarElement = "task"
	StarAction    StarElement = "action"
	StarResult    StarElement = "result"
)

// StarElements lists the elements in rubric order.
var StarElements = []StarElement{StarSituation, StarTask, StarAction, StarResult}

func (e StarElement) Valid() bool {
	return e == StarSituation || e == StarTask || e == StarAction || e == StarResult
}

func (e *StarElement) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(e), func(v string) bool { return StarElement(v).Valid() }, "STAR element")
}

// Stage is a pipeline hand-off point observed by the latency monitor.
type Stage string

const (
	StageCandidateAudioEnd Stage = "candidate_audio_end"
	StageSTTResult         Stage = "stt_result"
	StageLLMResponse       Stage = "llm_response"
	StageTTSStart          Stage = "tts_start"
	StageAvatarFrame       Stage = "avatar_frame"
)

func (s Stage) Valid() bool {
	switch s {
	case StageCandidateAudioEnd, StageSTTResult, StageLLMResponse, StageTTSStart, StageAvatarFrame:
		return true
	}
	return false
}

func (s *Stage) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(s), func(v string) bool { return Stage(v).Valid() }, "pipeline stage")
}

func unmarshalEnum(b []byte, dst *string, valid func(string) bool, kind string) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if !valid(v) {
		return fmt.Errorf("invalid %s %q", kind, v)
	}
	*dst = v
	return nil
}
