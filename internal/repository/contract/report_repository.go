package contract

import (
	"context"

	"ai-interviewer-be/internal/entity"

	"github.com/google/uuid"
)

type ReportRepository interface {
	// Save replaces any earlier report of the same session.
	Save(ctx context.Context, report *entity.Report) error
	GetBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Report, error)
}
