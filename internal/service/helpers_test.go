package service

import (
	"context"
	"testing"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/memory"
	"ai-interviewer-be/internal/repository/unitofwork"
	"ai-interviewer-be/pkg/scoring"

	"github.com/stretchr/testify/require"
)

type testServices struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *SessionRegistry
	sessions   ISessionService
	turns      ITurnService
	scores     IScoreService
	reports    IReportService
}

func newTestServices(t *testing.T, cfg SessionServiceConfig) *testServices {
	t.Helper()
	uowFactory := memory.NewRepositoryFactory(memory.NewStore())
	registry := NewSessionRegistry()
	log := logger.NewNopLogger()
	engine := scoring.NewEngine(scoring.Config{FollowUpMinChars: 80, RubricVersion: "v1"})

	return &testServices{
		uowFactory: uowFactory,
		registry:   registry,
		sessions:   NewSessionService(uowFactory, registry, nil, log, cfg),
		turns:      NewTurnService(uowFactory, registry, engine, log),
		scores:     NewScoreService(uowFactory, registry, engine, log),
		reports:    NewReportService(uowFactory, log),
	}
}

func scenarioCompetencies() []entity.Competency {
	return []entity.Competency{
		{Type: entity.CompetencyCommunication, Name: "Communication", Weight: 1.0},
		{Type: entity.CompetencyRoleFit, Name: "Role Fit", Weight: 1.2},
	}
}

func (ts *testServices) createSession(t *testing.T, competencies []entity.Competency) *entity.Session {
	t.Helper()
	session, err := ts.sessions.CreateSession(context.Background(), CreateSessionInput{
		Job: entity.JobContext{
			Title:       "Backend Engineer",
			Description: "Build and run Go services.",
		},
		Competencies: competencies,
	})
	require.NoError(t, err)
	return session
}

func (ts *testServices) startSession(t *testing.T, competencies []entity.Competency) *entity.Session {
	t.Helper()
	session := ts.createSession(t, competencies)
	started, err := ts.sessions.AcceptConnection(context.Background(), session.Id)
	require.NoError(t, err)
	require.Equal(t, entity.SessionStatusInProgress, started.Status)
	return started
}

const waitFor = 2 * time.Second
