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

type TurnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InterviewMapper
}

func NewTurnRepository(db *gorm.DB) contract.TurnRepository {
	return &TurnRepositoryImpl{
		db:     db,
		mapper: mapper.NewInterviewMapper(),
	}
}

// Save inserts only; turns are never updated once written.
func (r *TurnRepositoryImpl) Save(ctx context.Context, turn *entity.Turn) error {
	m, err := r.mapper.TurnToModel(turn)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *TurnRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*entity.Turn, error) {
	var m model.InterviewTurn
	if err := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id}).First(&m).Error; err != nil {
		return nil, notFound(err, "turn "+id.String())
	}
	return r.mapper.TurnToEntity(&m)
}

func (r *TurnRepositoryImpl) ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.Turn, error) {
	var models []*model.InterviewTurn
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "sequence"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*entity.Turn, 0, len(models))
	for _, m := range models {
		t, err := r.mapper.TurnToEntity(m)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (r *TurnRepositoryImpl) Latest(ctx context.Context, sessionId uuid.UUID, role *entity.TurnRole) (*entity.Turn, error) {
	specs := []specification.Specification{specification.BySessionID{SessionID: sessionId}}
	if role != nil {
		specs = append(specs, specification.ByRole{Role: string(*role)})
	}
	specs = append(specs, specification.OrderBy{Field: "sequence", Desc: true})

	var m model.InterviewTurn
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		return nil, notFound(err, "latest turn of session "+sessionId.String())
	}
	return r.mapper.TurnToEntity(&m)
}
