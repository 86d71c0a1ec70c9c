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
	"gorm.io/gorm/clause"
)

type ScoreRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InterviewMapper
}

func NewScoreRepository(db *gorm.DB) contract.ScoreRepository {
	return &ScoreRepositoryImpl{
		db:     db,
		mapper: mapper.NewInterviewMapper(),
	}
}

func (r *ScoreRepositoryImpl) Save(ctx context.Context, score *entity.Score) error {
	m, err := r.mapper.ScoreToModel(score)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "turn_id"}, {Name: "competency"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "rationale", "improvement_tip", "star_completeness", "rubric_version", "created_at",
		}),
	}).Create(m).Error
}

func (r *ScoreRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*entity.Score, error) {
	var m model.InterviewScore
	if err := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id}).First(&m).Error; err != nil {
		return nil, notFound(err, "score "+id.String())
	}
	return r.mapper.ScoreToEntity(&m)
}

func (r *ScoreRepositoryImpl) ListByTurn(ctx context.Context, turnId uuid.UUID) ([]*entity.Score, error) {
	return r.find(ctx, specification.ByTurnID{TurnID: turnId}, specification.OrderBy{Field: "competency"})
}

func (r *ScoreRepositoryImpl) ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.Score, error) {
	return r.find(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
		specification.OrderBy{Field: "competency"},
	)
}

func (r *ScoreRepositoryImpl) find(ctx context.Context, specs ...specification.Specification) ([]*entity.Score, error) {
	var models []*model.InterviewScore
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*entity.Score, 0, len(models))
	for _, m := range models {
		s, err := r.mapper.ScoreToEntity(m)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
