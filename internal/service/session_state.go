package service

import "ai-interviewer-be/internal/entity"

// sessionTransitions is the complete state machine. Anything not listed,
// including every event out of a terminal state, is an invalid transition.
var sessionTransitions = map[entity.SessionStatus]map[entity.SessionEvent]entity.SessionStatus{
	entity.SessionStatusCreated: {
		entity.SessionEventStart: entity.SessionStatusInProgress,
		entity.SessionEventFail:  entity.SessionStatusError,
	},
	entity.SessionStatusInProgress: {
		entity.SessionEventComplete:    entity.SessionStatusCompleted,
		entity.SessionEventAbandon:     entity.SessionStatusAbandoned,
		entity.SessionEventIdleTimeout: entity.SessionStatusAbandoned,
		entity.SessionEventFail:        entity.SessionStatusError,
	},
}

func nextStatus(from entity.SessionStatus, event entity.SessionEvent) (entity.SessionStatus, bool) {
	to, ok := sessionTransitions[from][event]
	return to, ok
}
