package contract

import (
	"context"

	"ai-interviewer-be/internal/entity"

	"github.com/google/uuid"
)

// SessionRepository. Get returns apperror.ErrNotFound for unknown ids.
type SessionRepository interface {
	Save(ctx context.Context, session *entity.Session) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	// ListByUser pages through the user's sessions, newest first.
	ListByUser(ctx context.Context, userId uuid.UUID, offset, limit int) ([]*entity.Session, error)
	CountByUser(ctx context.Context, userId uuid.UUID) (int64, error)

	AppendTransition(ctx context.Context, transition *entity.SessionTransition) error
	ListTransitions(ctx context.Context, sessionId uuid.UUID) ([]*entity.SessionTransition, error)
}
