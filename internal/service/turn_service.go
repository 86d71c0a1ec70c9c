package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/unitofwork"
	"ai-interviewer-be/pkg/scoring"

	"github.com/google/uuid"
)

type AppendTurnInput struct {
	Role       entity.TurnRole
	Content    string
	Competency *entity.CompetencyType
	StarTags   []entity.StarElement
	Final      bool
	Audio      *entity.AudioMetadata
}

// ITurnService is the append-only turn ledger of a session.
type ITurnService interface {
	AppendTurn(ctx context.Context, sessionId uuid.UUID, input AppendTurnInput) (*entity.Turn, error)
	// AppendScored appends a final candidate turn and scores it in one step.
	AppendScored(ctx context.Context, sessionId uuid.UUID, input AppendTurnInput) (*ScoredTurn, error)
	ListTurns(ctx context.Context, sessionId uuid.UUID) ([]*entity.Turn, error)
	// LatestTurn returns nil without error when the session has no matching turn.
	LatestTurn(ctx context.Context, sessionId uuid.UUID, role *entity.TurnRole) (*entity.Turn, error)
	// SetPartial keeps the in-flight transcript. It never reaches the ledger.
	SetPartial(sessionId uuid.UUID, text string)
}

type turnService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *SessionRegistry
	scorer     *scoreService
	logger     logger.ILogger
	now        func() time.Time
}

func NewTurnService(uowFactory unitofwork.RepositoryFactory, registry *SessionRegistry, engine *scoring.Engine, log logger.ILogger) ITurnService {
	return &turnService{
		uowFactory: uowFactory,
		registry:   registry,
		scorer:     newScoreService(uowFactory, registry, engine, log),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *turnService) AppendTurn(ctx context.Context, sessionId uuid.UUID, input AppendTurnInput) (*entity.Turn, error) {
	e := s.registry.acquire(sessionId)
	defer e.mu.Unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	_, turn, err := s.appendLocked(ctx, uow, sessionId, e, input)
	if err != nil {
		return nil, err
	}
	return turn, nil
}

func (s *turnService) AppendScored(ctx context.Context, sessionId uuid.UUID, input AppendTurnInput) (*ScoredTurn, error) {
	if input.Role == "" {
		input.Role = entity.TurnRoleCandidate
	}
	if input.Role != entity.TurnRoleCandidate {
		return nil, apperror.Validation("only candidate turns are scored")
	}
	if !input.Final {
		return nil, apperror.ErrIncompleteTurn
	}

	e := s.registry.acquire(sessionId)
	defer e.mu.Unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, turn, err := s.appendLocked(ctx, uow, sessionId, e, input)
	if err != nil {
		return nil, err
	}
	e.partial = ""
	return s.scorer.scoreLocked(ctx, uow, session, turn)
}

func (s *turnService) ListTurns(ctx context.Context, sessionId uuid.UUID) ([]*entity.Turn, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := uow.SessionRepository().Get(ctx, sessionId); err != nil {
		return nil, err
	}
	return uow.TurnRepository().ListBySession(ctx, sessionId)
}

func (s *turnService) LatestTurn(ctx context.Context, sessionId uuid.UUID, role *entity.TurnRole) (*entity.Turn, error) {
	turn, err := s.uowFactory.NewUnitOfWork(ctx).TurnRepository().Latest(ctx, sessionId, role)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	return turn, err
}

func (s *turnService) SetPartial(sessionId uuid.UUID, text string) {
	if e, ok := s.registry.lookup(sessionId); ok {
		e.mu.Lock()
		e.partial = text
		e.mu.Unlock()
	}
}

// appendLocked writes the next ledger entry. The caller holds e.mu.
func (s *turnService) appendLocked(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, e *sessionEntry, input AppendTurnInput) (*entity.Session, *entity.Turn, error) {
	if !input.Role.Valid() {
		return nil, nil, apperror.Validation(fmt.Sprintf("unknown turn role %q", input.Role))
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, nil, apperror.Validation("turn content is empty")
	}
	for _, tag := range input.StarTags {
		if !tag.Valid() {
			return nil, nil, apperror.Validation(fmt.Sprintf("unknown STAR element %q", tag))
		}
	}

	session, err := uow.SessionRepository().Get(ctx, sessionId)
	if err != nil {
		s.registry.releaseIfMissing(sessionId, e, err)
		return nil, nil, err
	}
	if session.Status != entity.SessionStatusInProgress {
		if session.Status.IsTerminal() {
			s.registry.releaseLocked(sessionId, e)
		}
		return nil, nil, apperror.New(apperror.ErrSessionNotActive, fmt.Sprintf("session is %s", session.Status))
	}
	if input.Competency != nil {
		if _, ok := session.Competency(*input.Competency); !ok {
			return nil, nil, apperror.Validation(fmt.Sprintf("session does not assess %q", *input.Competency))
		}
	}

	if !e.ledgerLoaded {
		last, err := uow.TurnRepository().Latest(ctx, sessionId, nil)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
		case err != nil:
			return nil, nil, fmt.Errorf("load ledger cursor: %w", err)
		default:
			e.nextSeq = last.Sequence
			e.lastTurnAt = last.Timestamp
		}
		e.ledgerLoaded = true
	}

	ts := s.now()
	if !ts.After(e.lastTurnAt) {
		ts = e.lastTurnAt.Add(time.Microsecond)
	}

	turn := &entity.Turn{
		Id:         uuid.New(),
		SessionId:  sessionId,
		Sequence:   e.nextSeq + 1,
		Role:       input.Role,
		Content:    content,
		Competency: input.Competency,
		StarTags:   input.StarTags,
		Final:      input.Final,
		Timestamp:  ts,
		Audio:      input.Audio,
	}
	if err := uow.TurnRepository().Save(ctx, turn); err != nil {
		return nil, nil, fmt.Errorf("save turn: %w", err)
	}

	e.nextSeq = turn.Sequence
	e.lastTurnAt = turn.Timestamp
	e.touch(time.Now())

	s.logger.Debug("LEDGER", "Turn appended", map[string]interface{}{
		"session_id": sessionId,
		"turn_id":    turn.Id,
		"sequence":   turn.Sequence,
		"role":       turn.Role,
	})
	return session, turn, nil
}
