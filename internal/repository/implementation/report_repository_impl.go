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

type ReportRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InterviewMapper
}

func NewReportRepository(db *gorm.DB) contract.ReportRepository {
	return &ReportRepositoryImpl{
		db:     db,
		mapper: mapper.NewInterviewMapper(),
	}
}

func (r *ReportRepositoryImpl) Save(ctx context.Context, report *entity.Report) error {
	m, err := r.mapper.ReportToModel(report)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(m).Error
}

func (r *ReportRepositoryImpl) GetBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Report, error) {
	var m model.InterviewReport
	if err := applySpecifications(r.db.WithContext(ctx), specification.BySessionID{SessionID: sessionId}).First(&m).Error; err != nil {
		return nil, notFound(err, "report of session "+sessionId.String())
	}
	return r.mapper.ReportToEntity(&m)
}
