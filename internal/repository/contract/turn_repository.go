package contract

import (
	"context"

	"ai-interviewer-be/internal/entity"

	"github.com/google/uuid"
)

type TurnRepository interface {
	Save(ctx context.Context, turn *entity.Turn) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Turn, error)
	// ListBySession returns turns ordered by sequence.
	ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.Turn, error)
	// Latest returns the highest-sequence turn of the session, optionally
	// restricted to role. It returns apperror.ErrNotFound when there is none.
	Latest(ctx context.Context, sessionId uuid.UUID, role *entity.TurnRole) (*entity.Turn, error)
}
