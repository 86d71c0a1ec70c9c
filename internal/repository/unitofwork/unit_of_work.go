package unitofwork

import (
	"context"

	"ai-interviewer-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	TurnRepository() contract.TurnRepository
	ScoreRepository() contract.ScoreRepository
	MetricsRepository() contract.MetricsRepository
	ReportRepository() contract.ReportRepository
}
