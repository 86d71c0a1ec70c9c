package memory

import (
	"context"
	"fmt"
	"sort"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type MetricsRepository struct {
	store *Store
}

func NewMetricsRepository(store *Store) contract.MetricsRepository {
	return &MetricsRepository{store: store}
}

func (r *MetricsRepository) Save(ctx context.Context, metrics *entity.LatencyMetrics) error {
	m := *metrics
	r.store.cache.Set("metrics:"+m.Id.String(), &m, cache.NoExpiration)
	r.store.appendIndex("session-metrics:"+m.SessionId.String(), m.Id)
	return nil
}

func (r *MetricsRepository) Get(ctx context.Context, id uuid.UUID) (*entity.LatencyMetrics, error) {
	if x, found := r.store.cache.Get("metrics:" + id.String()); found {
		m := *x.(*entity.LatencyMetrics)
		return &m, nil
	}
	return nil, fmt.Errorf("metrics %s: %w", id, apperror.ErrNotFound)
}

func (r *MetricsRepository) ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.LatencyMetrics, error) {
	ids := r.store.index("session-metrics:" + sessionId.String())
	res := make([]*entity.LatencyMetrics, 0, len(ids))
	for _, id := range ids {
		m, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].RecordedAt.Before(res[j].RecordedAt) })
	return res, nil
}
