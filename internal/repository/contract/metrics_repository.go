package contract

import (
	"context"

	"ai-interviewer-be/internal/entity"

	"github.com/google/uuid"
)

type MetricsRepository interface {
	Save(ctx context.Context, metrics *entity.LatencyMetrics) error
	Get(ctx context.Context, id uuid.UUID) (*entity.LatencyMetrics, error)
	// ListBySession returns samples ordered by RecordedAt.
	ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.LatencyMetrics, error)
}
