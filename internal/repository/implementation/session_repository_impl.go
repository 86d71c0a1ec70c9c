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

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InterviewMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewInterviewMapper(),
	}
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.SessionToModel(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var m model.InterviewSession
	query := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		return nil, notFound(err, "session "+id.String())
	}
	return r.mapper.SessionToEntity(&m)
}

func (r *SessionRepositoryImpl) ListByUser(ctx context.Context, userId uuid.UUID, offset, limit int) ([]*entity.Session, error) {
	var models []*model.InterviewSession
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Offset: offset, Limit: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*entity.Session, 0, len(models))
	for _, m := range models {
		s, err := r.mapper.SessionToEntity(m)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

func (r *SessionRepositoryImpl) CountByUser(ctx context.Context, userId uuid.UUID) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.InterviewSession{}),
		specification.ByUserID{UserID: userId},
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SessionRepositoryImpl) AppendTransition(ctx context.Context, transition *entity.SessionTransition) error {
	return r.db.WithContext(ctx).Create(r.mapper.TransitionToModel(transition)).Error
}

func (r *SessionRepositoryImpl) ListTransitions(ctx context.Context, sessionId uuid.UUID) ([]*entity.SessionTransition, error) {
	var models []*model.SessionTransition
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "occurred_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*entity.SessionTransition, 0, len(models))
	for _, m := range models {
		res = append(res, r.mapper.TransitionToEntity(m))
	}
	return res, nil
}
