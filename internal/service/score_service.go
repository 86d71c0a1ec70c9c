package service

import (
	"context"
	"fmt"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/unitofwork"
	"ai-interviewer-be/pkg/scoring"

	"github.com/google/uuid"
)

// ScoredTurn is a candidate turn together with its evaluation.
type ScoredTurn struct {
	Turn     *entity.Turn          `json:"turn"`
	Scores   []*entity.Score       `json:"scores"`
	FollowUp entity.FollowUpSignal `json:"followUp"`
}

type IScoreService interface {
	// ScoreTurn (re)scores a stored candidate turn. Re-scoring overwrites the
	// earlier score of each (turn, competency) pair.
	ScoreTurn(ctx context.Context, turnId uuid.UUID) (*ScoredTurn, error)
	ListScores(ctx context.Context, sessionId uuid.UUID) ([]*entity.Score, error)
}

type scoreService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *SessionRegistry
	engine     *scoring.Engine
	logger     logger.ILogger
	now        func() time.Time
}

func NewScoreService(uowFactory unitofwork.RepositoryFactory, registry *SessionRegistry, engine *scoring.Engine, log logger.ILogger) IScoreService {
	return newScoreService(uowFactory, registry, engine, log)
}

func newScoreService(uowFactory unitofwork.RepositoryFactory, registry *SessionRegistry, engine *scoring.Engine, log logger.ILogger) *scoreService {
	return &scoreService{
		uowFactory: uowFactory,
		registry:   registry,
		engine:     engine,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *scoreService) ScoreTurn(ctx context.Context, turnId uuid.UUID) (*ScoredTurn, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	turn, err := uow.TurnRepository().Get(ctx, turnId)
	if err != nil {
		return nil, err
	}

	e := s.registry.acquire(turn.SessionId)
	defer e.mu.Unlock()

	session, err := uow.SessionRepository().Get(ctx, turn.SessionId)
	if err != nil {
		s.registry.releaseIfMissing(turn.SessionId, e, err)
		return nil, err
	}
	if session.Status.IsTerminal() {
		// late rescore of an ended session
		defer s.registry.releaseLocked(turn.SessionId, e)
	}
	return s.scoreLocked(ctx, uow, session, turn)
}

func (s *scoreService) ListScores(ctx context.Context, sessionId uuid.UUID) ([]*entity.Score, error) {
	return s.uowFactory.NewUnitOfWork(ctx).ScoreRepository().ListBySession(ctx, sessionId)
}

// scoreLocked evaluates turn and persists its scores. The caller holds the
// session entry lock so scores land in finalization order.
func (s *scoreService) scoreLocked(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.Session, turn *entity.Turn) (*ScoredTurn, error) {
	if turn.Role != entity.TurnRoleCandidate {
		return nil, apperror.Validation(fmt.Sprintf("only candidate turns are scored, got %s", turn.Role))
	}

	result, err := s.engine.ScoreTurn(turn, session.Competencies)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	scores := make([]*entity.Score, 0, len(result.Scores))
	for i := range result.Scores {
		score := &result.Scores[i]
		score.CreatedAt = now
		if err := uow.ScoreRepository().Save(ctx, score); err != nil {
			return nil, fmt.Errorf("save score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Debug("SCORING", "Turn scored", map[string]interface{}{
		"session_id":     session.Id,
		"turn_id":        turn.Id,
		"scores":         len(scores),
		"follow_up":      result.FollowUp.Required,
		"star_count":     result.Star.Count(),
		"rubric_version": s.engine.RubricVersion(),
	})

	return &ScoredTurn{Turn: turn, Scores: scores, FollowUp: result.FollowUp}, nil
}
