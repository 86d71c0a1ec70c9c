package service

import (
	"testing"

	"ai-interviewer-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	allowed := map[entity.SessionStatus]map[entity.SessionEvent]entity.SessionStatus{
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

	statuses := []entity.SessionStatus{
		entity.SessionStatusCreated,
		entity.SessionStatusInProgress,
		entity.SessionStatusCompleted,
		entity.SessionStatusAbandoned,
		entity.SessionStatusError,
	}
	evts := []entity.SessionEvent{
		entity.SessionEventStart,
		entity.SessionEventComplete,
		entity.SessionEventAbandon,
		entity.SessionEventIdleTimeout,
		entity.SessionEventFail,
	}

	for _, from := range statuses {
		for _, event := range evts {
			t.Run(string(from)+"/"+string(event), func(t *testing.T) {
				to, ok := nextStatus(from, event)
				want, wantOK := allowed[from][event]
				assert.Equal(t, wantOK, ok)
				if wantOK {
					assert.Equal(t, want, to)
				}
				if from.IsTerminal() {
					assert.False(t, ok, "terminal states accept no events")
				}
			})
		}
	}
}
