package service

import (
	"context"
	"fmt"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/unitofwork"
	"ai-interviewer-be/pkg/latency"

	"github.com/google/uuid"
)

type SessionMetrics struct {
	Live    entity.LatencyMetrics    `json:"live"`
	Summary *entity.LatencyMetrics   `json:"summary,omitempty"`
	Samples []*entity.LatencyMetrics `json:"samples"`
}

type IMetricsService interface {
	SessionMetrics(ctx context.Context, sessionId uuid.UUID) (*SessionMetrics, error)
	// FlushSession persists the session roll-up and drops the live tracker.
	FlushSession(ctx context.Context, session *entity.Session) (*entity.LatencyMetrics, error)
}

type metricsService struct {
	uowFactory unitofwork.RepositoryFactory
	monitor    *latency.Monitor
	logger     logger.ILogger
}

func NewMetricsService(uowFactory unitofwork.RepositoryFactory, monitor *latency.Monitor, log logger.ILogger) IMetricsService {
	return &metricsService{uowFactory: uowFactory, monitor: monitor, logger: log}
}

func (s *metricsService) SessionMetrics(ctx context.Context, sessionId uuid.UUID) (*SessionMetrics, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := uow.SessionRepository().Get(ctx, sessionId); err != nil {
		return nil, err
	}
	stored, err := uow.MetricsRepository().ListBySession(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}

	res := &SessionMetrics{
		Live:    s.monitor.GetMetrics(sessionId),
		Samples: make([]*entity.LatencyMetrics, 0, len(stored)),
	}
	for _, m := range stored {
		if m.Scope == entity.MetricsScopeSession {
			res.Summary = m
			continue
		}
		res.Samples = append(res.Samples, m)
	}
	return res, nil
}

func (s *metricsService) FlushSession(ctx context.Context, session *entity.Session) (*entity.LatencyMetrics, error) {
	summary := s.monitor.Flush(session.Id)
	summary.Id = uuid.NewSHA1(session.Id, []byte("session-metrics"))

	if err := s.uowFactory.NewUnitOfWork(ctx).MetricsRepository().Save(ctx, &summary); err != nil {
		return nil, fmt.Errorf("save session metrics: %w", err)
	}

	s.logger.Info("METRICS", "Session latency summary stored", map[string]interface{}{
		"session_id":   session.Id,
		"samples":      summary.SampleCount,
		"breaches":     summary.Breaches,
		"audio_only":   summary.AudioOnly,
		"round_trip":   summary.Average.RoundTrip.String(),
		"ear_to_mouth": summary.Average.EarToMouth.String(),
	})
	return &summary, nil
}
