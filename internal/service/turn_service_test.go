package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTurn_ConcurrentAppendsStayOrdered(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := entity.TurnRoleInterviewer
			if i%2 == 1 {
				role = entity.TurnRoleCandidate
			}
			_, err := ts.turns.AppendTurn(ctx, session.Id, AppendTurnInput{Role: role, Content: fmt.Sprintf("utterance %d", i), Final: true})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := ts.turns.ListTurns(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, turns, n)
	for i, turn := range turns {
		assert.EqualValues(t, i+1, turn.Sequence)
		if i > 0 {
			assert.True(t, turn.Timestamp.After(turns[i-1].Timestamp), "timestamps strictly increase")
		}
	}
}

func TestAppendTurn_ParallelSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	a := ts.startSession(t, nil)
	b := ts.startSession(t, nil)

	var wg sync.WaitGroup
	for _, id := range []uuid.UUID{a.Id, b.Id} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := ts.turns.AppendTurn(ctx, id, AppendTurnInput{Role: entity.TurnRoleSystem, Content: "tick", Final: true})
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	for _, id := range []uuid.UUID{a.Id, b.Id} {
		turns, err := ts.turns.ListTurns(ctx, id)
		require.NoError(t, err)
		require.Len(t, turns, 10)
		assert.EqualValues(t, 10, turns[9].Sequence)
		for _, turn := range turns {
			assert.Equal(t, id, turn.SessionId)
		}
	}
}

func TestAppendTurn_RequiresActiveSession(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	input := AppendTurnInput{Role: entity.TurnRoleInterviewer, Content: "First question", Final: true}

	created := ts.createSession(t, nil)
	_, err := ts.turns.AppendTurn(ctx, created.Id, input)
	assert.ErrorIs(t, err, apperror.ErrSessionNotActive)

	finished := ts.startSession(t, nil)
	_, err = ts.sessions.Finish(ctx, finished.Id, entity.FinishReasonCompleted)
	require.NoError(t, err)
	_, err = ts.turns.AppendTurn(ctx, finished.Id, input)
	assert.ErrorIs(t, err, apperror.ErrSessionNotActive)

	_, err = ts.turns.AppendTurn(ctx, uuid.New(), input)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	turns, err := ts.turns.ListTurns(ctx, finished.Id)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAppendTurn_RacingFirstConnectKeepsOneLiveEntry(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{IdleTimeout: 150 * time.Millisecond})
	input := AppendTurnInput{Role: entity.TurnRoleSystem, Content: "still here", Final: true}

	const n = 10
	sessions := make([]*entity.Session, n)
	for i := range sessions {
		sessions[i] = ts.createSession(t, nil)
	}

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(2)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := ts.sessions.AcceptConnection(ctx, id)
			assert.NoError(t, err)
		}(session.Id)
		go func(id uuid.UUID) {
			defer wg.Done()
			// rejected while the session is still created
			_, _ = ts.turns.AppendTurn(ctx, id, input)
		}(session.Id)
	}
	wg.Wait()

	// activity well inside the idle timeout keeps every session alive
	for i := 0; i < 8; i++ {
		time.Sleep(50 * time.Millisecond)
		for _, session := range sessions {
			_, err := ts.turns.AppendTurn(ctx, session.Id, input)
			require.NoError(t, err)
		}
	}

	assert.Equal(t, n, ts.registry.Len())
	for _, session := range sessions {
		stored, err := ts.sessions.GetSession(ctx, session.Id)
		require.NoError(t, err)
		assert.Equal(t, entity.SessionStatusInProgress, stored.Status)

		e, ok := ts.registry.lookup(session.Id)
		require.True(t, ok)
		e.mu.Lock()
		assert.NotNil(t, e.idleTimer, "the registered entry owns the idle timer")
		assert.EqualValues(t, 1, e.connections.Load())
		e.mu.Unlock()
	}
}

func TestAppendTurn_CreatedSessionKeepsItsEntry(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.createSession(t, nil)

	_, err := ts.turns.AppendTurn(ctx, session.Id, AppendTurnInput{Role: entity.TurnRoleSystem, Content: "early", Final: true})
	require.ErrorIs(t, err, apperror.ErrSessionNotActive)
	before, ok := ts.registry.lookup(session.Id)
	require.True(t, ok)

	_, err = ts.sessions.AcceptConnection(ctx, session.Id)
	require.NoError(t, err)
	after, ok := ts.registry.lookup(session.Id)
	require.True(t, ok)
	assert.Same(t, before, after)

	_, err = ts.sessions.Finish(ctx, session.Id, entity.FinishReasonCompleted)
	require.NoError(t, err)
	assert.Equal(t, 0, ts.registry.Len())
	before.mu.Lock()
	assert.True(t, before.released)
	assert.Nil(t, before.idleTimer)
	before.mu.Unlock()
}

func TestAppendTurn_Validation(t *testing.T) {
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, scenarioCompetencies())
	teamwork := entity.CompetencyTeamwork

	cases := []struct {
		name  string
		input AppendTurnInput
	}{
		{"empty content", AppendTurnInput{Role: entity.TurnRoleCandidate, Content: "   ", Final: true}},
		{"unknown role", AppendTurnInput{Role: entity.TurnRole("observer"), Content: "hi", Final: true}},
		{"unknown star tag", AppendTurnInput{Role: entity.TurnRoleCandidate, Content: "hi", StarTags: []entity.StarElement{"context"}, Final: true}},
		{"competency outside session", AppendTurnInput{Role: entity.TurnRoleCandidate, Content: "hi", Competency: &teamwork, Final: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ts.turns.AppendTurn(context.Background(), session.Id, tc.input)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestAppendScored_ShortAnswerScenario(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, scenarioCompetencies())

	_, err := ts.turns.AppendTurn(ctx, session.Id, AppendTurnInput{Role: entity.TurnRoleInterviewer, Content: "Tell me about a hard bug.", Final: true})
	require.NoError(t, err)

	scored, err := ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Content: "I fixed a bug there.", Final: true})
	require.NoError(t, err)

	assert.Equal(t, entity.TurnRoleCandidate, scored.Turn.Role)
	assert.EqualValues(t, 2, scored.Turn.Sequence)
	require.Len(t, scored.Scores, 2)
	for _, s := range scored.Scores {
		assert.Equal(t, 1, s.Value)
		assert.Equal(t, scored.Turn.Id, s.TurnId)
	}
	assert.True(t, scored.FollowUp.Required)
	assert.Equal(t, scored.Turn.Id, scored.FollowUp.TurnId)

	stored, err := ts.scores.ListScores(ctx, session.Id)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestAppendScored_RejectsIncompleteOrNonCandidate(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, nil)

	_, err := ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Content: "I was about to", Final: false})
	assert.ErrorIs(t, err, apperror.ErrIncompleteTurn)

	_, err = ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Role: entity.TurnRoleInterviewer, Content: "Next question", Final: true})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	turns, err := ts.turns.ListTurns(ctx, session.Id)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestLatestTurn(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, nil)

	latest, err := ts.turns.LatestTurn(ctx, session.Id, nil)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = ts.turns.AppendTurn(ctx, session.Id, AppendTurnInput{Role: entity.TurnRoleInterviewer, Content: "Q1", Final: true})
	require.NoError(t, err)
	_, err = ts.turns.AppendTurn(ctx, session.Id, AppendTurnInput{Role: entity.TurnRoleCandidate, Content: "A1", Final: true})
	require.NoError(t, err)

	interviewer := entity.TurnRoleInterviewer
	latest, err = ts.turns.LatestTurn(ctx, session.Id, &interviewer)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "Q1", latest.Content)

	latest, err = ts.turns.LatestTurn(ctx, session.Id, nil)
	require.NoError(t, err)
	assert.Equal(t, "A1", latest.Content)
}
