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

type ScoreRepository struct {
	store *Store
}

func NewScoreRepository(store *Store) contract.ScoreRepository {
	return &ScoreRepository{store: store}
}

// Save overwrites the score stored under the same (turn, competency) key.
func (r *ScoreRepository) Save(ctx context.Context, score *entity.Score) error {
	s := *score
	key := "score-key:" + s.TurnId.String() + ":" + string(s.Competency)
	if x, found := r.store.cache.Get(key); found {
		s.Id = x.(uuid.UUID)
	}
	r.store.cache.Set(key, s.Id, cache.NoExpiration)
	r.store.cache.Set("score:"+s.Id.String(), &s, cache.NoExpiration)
	r.store.appendIndex("turn-scores:"+s.TurnId.String(), s.Id)
	r.store.appendIndex("session-scores:"+s.SessionId.String(), s.Id)
	return nil
}

func (r *ScoreRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Score, error) {
	if x, found := r.store.cache.Get("score:" + id.String()); found {
		s := *x.(*entity.Score)
		return &s, nil
	}
	return nil, fmt.Errorf("score %s: %w", id, apperror.ErrNotFound)
}

func (r *ScoreRepository) ListByTurn(ctx context.Context, turnId uuid.UUID) ([]*entity.Score, error) {
	res, err := r.list(ctx, "turn-scores:"+turnId.String())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Competency < res[j].Competency })
	return res, nil
}

func (r *ScoreRepository) ListBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.Score, error) {
	res, err := r.list(ctx, "session-scores:"+sessionId.String())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].Competency < res[j].Competency
	})
	return res, nil
}

func (r *ScoreRepository) list(ctx context.Context, indexKey string) ([]*entity.Score, error) {
	ids := r.store.index(indexKey)
	res := make([]*entity.Score, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
