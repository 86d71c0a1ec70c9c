package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/unitofwork"
	"ai-interviewer-be/pkg/events"

	"github.com/google/uuid"
)

type CreateSessionInput struct {
	UserId       *uuid.UUID
	Job          entity.JobContext
	Competencies []entity.Competency
	Metadata     map[string]interface{}
}

// TransitionListener observes committed transitions. Listeners run on their
// own goroutine, after the session lock is released.
type TransitionListener func(ctx context.Context, session *entity.Session, transition *entity.SessionTransition)

type ISessionService interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*entity.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	// ListSessions returns one page of the user's sessions, newest first,
	// with the user's total session count.
	ListSessions(ctx context.Context, userId uuid.UUID, page, limit int) ([]*entity.Session, int64, error)
	Transition(ctx context.Context, id uuid.UUID, event entity.SessionEvent, reason string) (*entity.Session, error)
	ListTransitions(ctx context.Context, id uuid.UUID) ([]*entity.SessionTransition, error)

	// AcceptConnection admits a transport connection, starting a created session.
	AcceptConnection(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	// HandleDisconnect is told when a connection leaves; the idle countdown keeps running.
	HandleDisconnect(id uuid.UUID)
	// Finish applies an explicit finish signal. It is a no-op on terminal sessions.
	Finish(ctx context.Context, id uuid.UUID, reason entity.FinishReason) (*entity.Session, error)

	// RecordProviderFailure counts a collaborator failure and fails the
	// session once the configured threshold is reached.
	RecordProviderFailure(ctx context.Context, id uuid.UUID, cause error) (*entity.Session, error)
	RecordProviderSuccess(id uuid.UUID)

	OnTransition(listener TransitionListener)
}

type SessionServiceConfig struct {
	IdleTimeout      time.Duration
	FailureThreshold int
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *SessionRegistry
	publisher  events.Publisher
	logger     logger.ILogger
	cfg        SessionServiceConfig
	now        func() time.Time

	listenersMu sync.RWMutex
	listeners   []TransitionListener
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	registry *SessionRegistry,
	publisher events.Publisher,
	log logger.ILogger,
	cfg SessionServiceConfig,
) ISessionService {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &sessionService{
		uowFactory: uowFactory,
		registry:   registry,
		publisher:  publisher,
		logger:     log,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *sessionService) OnTransition(listener TransitionListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *sessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*entity.Session, error) {
	competencies := input.Competencies
	if len(competencies) == 0 {
		competencies = entity.DefaultCompetencies()
	}
	for _, c := range competencies {
		if c.Type == "" || c.Weight <= 0 {
			return nil, apperror.Validation(fmt.Sprintf("competency %q needs a type and a positive weight", c.Type))
		}
	}

	session := &entity.Session{
		Id:           uuid.New(),
		UserId:       input.UserId,
		Job:          input.Job,
		Competencies: competencies,
		Status:       entity.SessionStatusCreated,
		CreatedAt:    s.now(),
		Metadata:     input.Metadata,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionRepository().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("SESSION", "Session created", map[string]interface{}{
		"session_id": session.Id,
		"job_title":  session.Job.Title,
	})
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	return s.uowFactory.NewUnitOfWork(ctx).SessionRepository().Get(ctx, id)
}

func (s *sessionService) ListSessions(ctx context.Context, userId uuid.UUID, page, limit int) ([]*entity.Session, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return nil, 0, apperror.Validation("limit must be positive")
	}
	repo := s.uowFactory.NewUnitOfWork(ctx).SessionRepository()
	total, err := repo.CountByUser(ctx, userId)
	if err != nil {
		return nil, 0, err
	}
	sessions, err := repo.ListByUser(ctx, userId, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (s *sessionService) ListTransitions(ctx context.Context, id uuid.UUID) ([]*entity.SessionTransition, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := uow.SessionRepository().Get(ctx, id); err != nil {
		return nil, err
	}
	return uow.SessionRepository().ListTransitions(ctx, id)
}

func (s *sessionService) Transition(ctx context.Context, id uuid.UUID, event entity.SessionEvent, reason string) (*entity.Session, error) {
	if !event.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown session event %q", event))
	}
	e := s.registry.acquire(id)
	session, transition, err := s.transitionLocked(ctx, id, e, event, reason)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.committed(session, transition)
	return session, nil
}

func (s *sessionService) AcceptConnection(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	e := s.registry.acquire(id)

	session, err := s.GetSession(ctx, id)
	if err != nil {
		s.registry.releaseIfMissing(id, e, err)
		e.mu.Unlock()
		return nil, err
	}

	var transition *entity.SessionTransition
	switch {
	case session.Status == entity.SessionStatusCreated:
		session, transition, err = s.transitionLocked(ctx, id, e, entity.SessionEventStart, "first realtime connection")
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
	case session.Status.IsTerminal():
		s.registry.releaseLocked(id, e)
		e.mu.Unlock()
		return nil, apperror.New(apperror.ErrSessionNotActive, fmt.Sprintf("session is %s", session.Status))
	case e.idleTimer == nil:
		// in_progress session picked up after a restart
		e.touch(time.Now())
		s.armIdle(id, e, s.cfg.IdleTimeout)
	}
	e.touch(time.Now())
	e.connections.Add(1)
	e.mu.Unlock()

	if transition != nil {
		s.committed(session, transition)
	}
	return session, nil
}

func (s *sessionService) HandleDisconnect(id uuid.UUID) {
	e, ok := s.registry.lookup(id)
	if !ok {
		return
	}
	remaining := e.connections.Add(-1)
	if remaining < 0 {
		e.connections.Store(0)
		remaining = 0
	}
	details := map[string]interface{}{"session_id": id, "connections": remaining}
	if remaining == 0 {
		details["idle_in"] = (s.cfg.IdleTimeout - e.idleFor(time.Now())).String()
	}
	s.logger.Info("SESSION", "Connection left session", details)
}

func (s *sessionService) Finish(ctx context.Context, id uuid.UUID, reason entity.FinishReason) (*entity.Session, error) {
	if reason == "" {
		reason = entity.FinishReasonCompleted
	}
	if !reason.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown finish reason %q", reason))
	}

	e := s.registry.acquire(id)
	session, err := s.GetSession(ctx, id)
	if err != nil {
		s.registry.releaseIfMissing(id, e, err)
		e.mu.Unlock()
		return nil, err
	}
	if session.Status.IsTerminal() {
		// duplicate finish signal
		s.registry.releaseLocked(id, e)
		e.mu.Unlock()
		return session, nil
	}
	session, transition, err := s.transitionLocked(ctx, id, e, reason.Event(), "finish: "+string(reason))
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.committed(session, transition)
	return session, nil
}

func (s *sessionService) RecordProviderFailure(ctx context.Context, id uuid.UUID, cause error) (*entity.Session, error) {
	e := s.registry.acquire(id)
	e.providerFailures++
	e.providerErrors++
	failures := e.providerFailures

	s.logger.Warn("SESSION", "Provider failure", map[string]interface{}{
		"session_id": id,
		"failures":   failures,
		"threshold":  s.cfg.FailureThreshold,
		"error":      errString(cause),
	})

	if failures < s.cfg.FailureThreshold {
		session, err := s.GetSession(ctx, id)
		switch {
		case err != nil:
			s.registry.releaseIfMissing(id, e, err)
		case session.Status.IsTerminal():
			s.registry.releaseLocked(id, e)
		}
		e.mu.Unlock()
		return session, err
	}

	session, transition, err := s.transitionLocked(ctx, id, e, entity.SessionEventFail,
		fmt.Sprintf("%d consecutive provider failures", failures))
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidTransition) {
			return s.GetSession(ctx, id)
		}
		return nil, err
	}
	s.committed(session, transition)
	return session, nil
}

func (s *sessionService) RecordProviderSuccess(id uuid.UUID) {
	if e, ok := s.registry.lookup(id); ok {
		e.mu.Lock()
		e.providerFailures = 0
		e.mu.Unlock()
	}
}

// transitionLocked applies event to the stored session. The caller holds e.mu.
// The entry is retired when the session is gone or has ended.
func (s *sessionService) transitionLocked(ctx context.Context, id uuid.UUID, e *sessionEntry, event entity.SessionEvent, reason string) (*entity.Session, *entity.SessionTransition, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().Get(ctx, id)
	if err != nil {
		s.registry.releaseIfMissing(id, e, err)
		return nil, nil, err
	}

	from := session.Status
	to, ok := nextStatus(from, event)
	if !ok {
		if from.IsTerminal() {
			s.registry.releaseLocked(id, e)
		}
		return nil, nil, apperror.New(apperror.ErrInvalidTransition, fmt.Sprintf("%s does not accept %s", from, event))
	}

	now := s.now()
	session.Status = to
	if to == entity.SessionStatusInProgress {
		session.StartedAt = &now
	}
	if to.IsTerminal() {
		if session.StartedAt == nil {
			// created -> error skips in_progress
			session.StartedAt = &now
		}
		session.CompletedAt = &now

		n, err := s.countTurns(ctx, uow, id)
		if err != nil {
			return nil, nil, err
		}
		if session.Metadata == nil {
			session.Metadata = map[string]interface{}{}
		}
		session.Metadata["turnCount"] = n
		session.Metadata["providerErrorCount"] = e.providerErrors
	}

	transition := &entity.SessionTransition{
		Id:         uuid.New(),
		SessionId:  id,
		From:       from,
		To:         to,
		Event:      event,
		Reason:     reason,
		OccurredAt: now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	if err := uow.SessionRepository().Save(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	if err := uow.SessionRepository().AppendTransition(ctx, transition); err != nil {
		return nil, nil, fmt.Errorf("append transition: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}

	switch {
	case to == entity.SessionStatusInProgress:
		e.touch(time.Now())
		s.armIdle(id, e, s.cfg.IdleTimeout)
	case to.IsTerminal():
		s.registry.releaseLocked(id, e)
	}

	s.logger.Info("SESSION", "Session transitioned", map[string]interface{}{
		"session_id": id,
		"from":       from,
		"to":         to,
		"event":      event,
		"reason":     reason,
	})
	return session, transition, nil
}

func (s *sessionService) countTurns(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (int, error) {
	turns, err := uow.TurnRepository().ListBySession(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return len(turns), nil
}

// armIdle (re)schedules the idle check. The caller holds e.mu.
func (s *sessionService) armIdle(id uuid.UUID, e *sessionEntry, after time.Duration) {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(after, func() { s.checkIdle(id, e) })
}

func (s *sessionService) checkIdle(id uuid.UUID, e *sessionEntry) {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return
	}
	idle := e.idleFor(time.Now())
	if idle < s.cfg.IdleTimeout {
		s.armIdle(id, e, s.cfg.IdleTimeout-idle)
		e.mu.Unlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	session, transition, err := s.transitionLocked(ctx, id, e, entity.SessionEventIdleTimeout, apperror.ErrIdleTimeout.Error())
	e.mu.Unlock()
	if err != nil {
		if !errors.Is(err, apperror.ErrInvalidTransition) {
			s.logger.Error("SESSION", "Idle timeout transition failed", map[string]interface{}{"session_id": id, "error": err})
		}
		return
	}
	s.committed(session, transition)
}

// committed fans a transition out to the bus and to local listeners.
func (s *sessionService) committed(session *entity.Session, transition *entity.SessionTransition) {
	s.listenersMu.RLock()
	listeners := append([]TransitionListener(nil), s.listeners...)
	s.listenersMu.RUnlock()

	snapshot := session.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.publisher.Publish(ctx, transitionEvent(snapshot, transition)); err != nil {
			s.logger.Warn("SESSION", "Failed to publish transition event", map[string]interface{}{
				"session_id": snapshot.Id,
				"error":      err.Error(),
			})
		}
		for _, l := range listeners {
			l(ctx, snapshot, transition)
		}
	}()
}

func transitionEvent(session *entity.Session, t *entity.SessionTransition) events.Event {
	eventType := "session." + strings.ReplaceAll(string(t.To), "_", ".")
	switch t.To {
	case entity.SessionStatusInProgress:
		eventType = events.TypeSessionStarted
	case entity.SessionStatusCompleted:
		eventType = events.TypeSessionCompleted
	case entity.SessionStatusAbandoned:
		eventType = events.TypeSessionAbandoned
	case entity.SessionStatusError:
		eventType = events.TypeSessionFailed
	}

	data := map[string]interface{}{
		"sessionId":    session.Id.String(),
		"transitionId": t.Id.String(),
		"from":         string(t.From),
		"to":           string(t.To),
		"event":        string(t.Event),
		"reason":       t.Reason,
	}
	if session.UserId != nil {
		data["userId"] = session.UserId.String()
	}
	return events.BaseEvent{Type: eventType, Data: data, OccurredAt: t.OccurredAt}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
