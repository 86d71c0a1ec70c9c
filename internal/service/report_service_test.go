package service

import (
	"context"
	"testing"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport_WeightedOverall(t *testing.T) {
	session := &entity.Session{Id: uuid.New(), Competencies: scenarioCompetencies()}
	turnA, turnB := uuid.New(), uuid.New()
	turns := []*entity.Turn{
		{Id: turnA, SessionId: session.Id, Sequence: 1, Role: entity.TurnRoleCandidate},
		{Id: turnB, SessionId: session.Id, Sequence: 2, Role: entity.TurnRoleCandidate},
	}
	full := entity.StarCompleteness{Situation: true, Task: true, Action: true, Result: true}
	noResult := entity.StarCompleteness{Situation: true, Task: true, Action: true}
	scores := []*entity.Score{
		{TurnId: turnA, Competency: entity.CompetencyCommunication, Value: 4, Rationale: "clear", Star: full},
		{TurnId: turnB, Competency: entity.CompetencyCommunication, Value: 2, ImprovementTip: "add the result", Star: noResult},
		{TurnId: turnA, Competency: entity.CompetencyRoleFit, Value: 5, Rationale: "deep", Star: full},
		{TurnId: turnB, Competency: entity.CompetencyRoleFit, Value: 5, Rationale: "deep", Star: noResult},
	}

	report := buildReport(session, turns, scores)

	require.Len(t, report.CompetencyAssessments, 2)
	comm := report.CompetencyAssessments[0]
	assert.Equal(t, entity.CompetencyCommunication, comm.Competency)
	assert.Equal(t, 3.0, comm.AverageScore)
	assert.Equal(t, []string{"clear"}, comm.Strengths)
	assert.Equal(t, []string{"add the result"}, comm.Improvements)

	roleFit := report.CompetencyAssessments[1]
	assert.Equal(t, 5.0, roleFit.AverageScore)
	assert.Equal(t, []string{"deep"}, roleFit.Strengths, "duplicate rationales collapse")

	// (3*1.0 + 5*1.2) / 2.2
	assert.Equal(t, 4.09, report.OverallScore)
	assert.Contains(t, report.OverallSummary, "Strongest area: role_fit")
	assert.Len(t, report.NextSteps, 1, "result is missing in half of the scored turns")
	assert.Empty(t, report.RecommendedResources)
}

func TestBuildReport_NoScores(t *testing.T) {
	session := &entity.Session{Id: uuid.New(), Competencies: scenarioCompetencies()}
	report := buildReport(session, nil, nil)

	assert.Zero(t, report.OverallScore)
	assert.Empty(t, report.CompetencyAssessments)
	assert.NotEmpty(t, report.OverallSummary)
	assert.NotEmpty(t, report.NextSteps)
}

func TestReportService_GetOnlyForCompletedSessions(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	session := ts.startSession(t, scenarioCompetencies())

	_, err := ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Content: strongAnswer, Final: true})
	require.NoError(t, err)

	_, err = ts.reports.Get(ctx, session.Id)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = ts.sessions.Finish(ctx, session.Id, entity.FinishReasonCompleted)
	require.NoError(t, err)

	report, err := ts.reports.Get(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, report.SessionId)
	assert.GreaterOrEqual(t, report.OverallScore, 1.0)
	assert.LessOrEqual(t, report.OverallScore, 5.0)
	assert.Len(t, report.CompetencyAssessments, 2)

	regenerated, err := ts.reports.Generate(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, report.Id, regenerated.Id)
	assert.Equal(t, report.OverallScore, regenerated.OverallScore)
}

func TestReportOnCompletion(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	ts.sessions.OnTransition(ReportOnCompletion(ts.reports, logger.NewNopLogger()))
	session := ts.startSession(t, scenarioCompetencies())

	_, err := ts.turns.AppendScored(ctx, session.Id, AppendTurnInput{Content: strongAnswer, Final: true})
	require.NoError(t, err)
	_, err = ts.sessions.Finish(ctx, session.Id, entity.FinishReasonCompleted)
	require.NoError(t, err)

	uow := ts.uowFactory.NewUnitOfWork(ctx)
	require.Eventually(t, func() bool {
		_, err := uow.ReportRepository().GetBySession(ctx, session.Id)
		return err == nil
	}, waitFor, 10*time.Millisecond)
}
