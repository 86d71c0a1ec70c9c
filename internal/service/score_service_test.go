package service

import (
	"context"
	"testing"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongAnswer = "At my previous company our team was struggling with slow deployments. " +
	"My responsibility was to shorten release time. I automated the pipeline and then I migrated " +
	"the build to containers. As a result, we reduced deploy time by 60% and released twice as often."

func TestScoreTurn_RescoreOverwrites(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, scenarioCompetencies())

	first, err := ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Content: strongAnswer, Final: true})
	require.NoError(t, err)

	again, err := ts.scores.ScoreTurn(ctx, first.Turn.Id)
	require.NoError(t, err)
	require.Len(t, again.Scores, len(first.Scores))
	for i := range again.Scores {
		assert.Equal(t, first.Scores[i].Id, again.Scores[i].Id)
		assert.Equal(t, first.Scores[i].Value, again.Scores[i].Value)
	}

	stored, err := ts.scores.ListScores(ctx, session.Id)
	require.NoError(t, err)
	assert.Len(t, stored, len(scenarioCompetencies()), "one score per (turn, competency)")
}

func TestScoreTurn_RejectsInterviewerTurn(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, nil)

	turn, err := ts.turns.AppendTurn(ctx, session.Id, AppendTurnInput{Role: entity.TurnRoleInterviewer, Content: "Why us?", Final: true})
	require.NoError(t, err)

	_, err = ts.scores.ScoreTurn(ctx, turn.Id)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestScoreTurn_ValuesWithinRubric(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, nil)

	for _, answer := range []string{"No.", "I fixed a bug there.", strongAnswer} {
		scored, err := ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Content: answer, Final: true})
		require.NoError(t, err)
		for _, s := range scored.Scores {
			assert.GreaterOrEqual(t, s.Value, 1)
			assert.LessOrEqual(t, s.Value, 5)
		}
	}
}

func TestScoreTurn_EndedSessionLeavesNoEntry(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, scenarioCompetencies())

	scored, err := ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Content: strongAnswer, Final: true})
	require.NoError(t, err)
	_, err = ts.sessions.Finish(ctx, session.Id, entity.FinishReasonCompleted)
	require.NoError(t, err)
	require.Equal(t, 0, ts.registry.Len())

	again, err := ts.scores.ScoreTurn(ctx, scored.Turn.Id)
	require.NoError(t, err)
	assert.Len(t, again.Scores, len(scored.Scores))
	assert.Equal(t, 0, ts.registry.Len())
}
