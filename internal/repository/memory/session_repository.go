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

type SessionRepository struct {
	store *Store
}

func NewSessionRepository(store *Store) contract.SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) Save(ctx context.Context, session *entity.Session) error {
	r.store.cache.Set("session:"+session.Id.String(), session.Clone(), cache.NoExpiration)
	if session.UserId != nil {
		r.store.appendIndex("user-sessions:"+session.UserId.String(), session.Id)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	if x, found := r.store.cache.Get("session:" + id.String()); found {
		return x.(*entity.Session).Clone(), nil
	}
	return nil, fmt.Errorf("session %s: %w", id, apperror.ErrNotFound)
}

func (r *SessionRepository) ListByUser(ctx context.Context, userId uuid.UUID, offset, limit int) ([]*entity.Session, error) {
	res, err := r.listByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if offset > len(res) {
		offset = len(res)
	}
	end := len(res)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return res[offset:end], nil
}

func (r *SessionRepository) CountByUser(ctx context.Context, userId uuid.UUID) (int64, error) {
	return int64(len(r.store.index("user-sessions:" + userId.String()))), nil
}

func (r *SessionRepository) listByUser(ctx context.Context, userId uuid.UUID) ([]*entity.Session, error) {
	ids := r.store.index("user-sessions:" + userId.String())
	res := make([]*entity.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (r *SessionRepository) AppendTransition(ctx context.Context, transition *entity.SessionTransition) error {
	t := *transition
	r.store.cache.Set("transition:"+t.Id.String(), &t, cache.NoExpiration)
	r.store.appendIndex("session-transitions:"+t.SessionId.String(), t.Id)
	return nil
}

func (r *SessionRepository) ListTransitions(ctx context.Context, sessionId uuid.UUID) ([]*entity.SessionTransition, error) {
	ids := r.store.index("session-transitions:" + sessionId.String())
	res := make([]*entity.SessionTransition, 0, len(ids))
	for _, id := range ids {
		if x, found := r.store.cache.Get("transition:" + id.String()); found {
			t := *x.(*entity.SessionTransition)
			res = append(res, &t)
		}
	}
	return res, nil
}
