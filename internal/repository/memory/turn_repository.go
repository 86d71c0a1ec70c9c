package memory

import (
	"context"
	"fmt"
	"sort"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type TurnRepository struct {
	store *Store
}

func NewTurnRepository(store *Store) contract.TurnRepository {
	return &TurnRepository{store: store}
}

func (r *TurnRepository) Save(ctx context.Context, turn *entity.Turn) error {
	if err := r.store.cache.Add("turn:"+turn.Id.String(), turn.Clone(), cache.NoExpiration); err != nil {
		return fmt.Errorf("turn %s already stored", turn.Id)
	}
	r.store.appendIndex("session-turns:"+turn.SessionId.String(), turn.Id)
	return nil
}

func (r *TurnRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Turn, error) {
	if x, found := r.store.cache.Get("turn:" + id.String()); found {
		return x.(*entity.Turn).Clone(), nil
	}
	return nil, fmt.Errorf("turn %s: %w", id, apperror.ErrNotFound)
}

func (r *TurnRepository) ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.Turn, error) {
	ids := r.store.index("session-turns:" + sessionId.String())
	res := make([]*entity.Turn, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Sequence < res[j].Sequence })
	return res, nil
}

func (r *TurnRepository) Latest(ctx context.Context, sessionId uuid.UUID, role *entity.TurnRole) (*entity.Turn, error) {
	turns, err := r.ListBySession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if role == nil || turns[i].Role == *role {
			return turns[i], nil
		}
	}
	return nil, fmt.Errorf("latest turn of session %s: %w", sessionId, apperror.ErrNotFound)
}
