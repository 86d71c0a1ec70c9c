package contract

import (
	"context"

	"ai-interviewer-be/internal/entity"

	"github.com/google/uuid"
)

type ScoreRepository interface {
	// Save upserts on (turn, competency).
	Save(ctx context.Context, score *entity.Score) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Score, error)
	ListByTurn(ctx context.Context, turnId uuid.UUID) ([]*entity.Score, error)
	ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.Score, error)
}
