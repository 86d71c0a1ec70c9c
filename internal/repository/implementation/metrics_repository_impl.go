package implementation

import (
	"context"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/mapper"
	"ai-interviewer-be/internal/model"
	"ai-interviewer-be/internal/repository/contract"
	"ai-interviewer-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MetricsRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InterviewMapper
}

func NewMetricsRepository(db *gorm.DB) contract.MetricsRepository {
	return &MetricsRepositoryImpl{
		db:     db,
		mapper: mapper.NewInterviewMapper(),
	}
}

func (r *MetricsRepositoryImpl) Save(ctx context.Context, metrics *entity.LatencyMetrics) error {
	m, err := r.mapper.MetricsToModel(metrics)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MetricsRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*entity.LatencyMetrics, error) {
	var m model.SessionMetric
	if err := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id}).First(&m).Error; err != nil {
		return nil, notFound(err, "metrics "+id.String())
	}
	return r.mapper.MetricsToEntity(&m)
}

func (r *MetricsRepositoryImpl) ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.LatencyMetrics, error) {
	var models []*model.SessionMetric
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "recorded_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*entity.LatencyMetrics, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.MetricsToEntity(m)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}
