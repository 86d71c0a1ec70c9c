package memory

import (
	"context"
	"sync"

	"ai-interviewer-be/internal/repository/contract"
	"ai-interviewer-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store keeps every entity in a non-expiring go-cache. It is the default
// backend when no database is configured and the backend of most tests.
// Values are cloned on the way in and out so callers never share memory
// with the store.
type Store struct {
	cache *cache.Cache
	// mu serialises read-modify-write of the index lists.
	mu sync.Mutex
}

func NewStore() *Store {
	return &Store{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *Store) appendIndex(key string, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	if x, found := s.cache.Get(key); found {
		ids = x.([]uuid.UUID)
	}
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	next := make([]uuid.UUID, len(ids), len(ids)+1)
	copy(next, ids)
	s.cache.Set(key, append(next, id), cache.NoExpiration)
}

func (s *Store) index(key string) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x, found := s.cache.Get(key); found {
		return x.([]uuid.UUID)
	}
	return nil
}

type RepositoryFactory struct {
	store *Store
}

func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &RepositoryFactory{store: store}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: f.store}
}

// unitOfWork writes through immediately; Begin/Commit/Rollback only exist
// to satisfy the interface, there is no rollback of in-memory writes.
type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) SessionRepository() contract.SessionRepository {
	return NewSessionRepository(u.store)
}

func (u *unitOfWork) TurnRepository() contract.TurnRepository {
	return NewTurnRepository(u.store)
}

func (u *unitOfWork) ScoreRepository() contract.ScoreRepository {
	return NewScoreRepository(u.store)
}

func (u *unitOfWork) MetricsRepository() contract.MetricsRepository {
	return NewMetricsRepository(u.store)
}

func (u *unitOfWork) ReportRepository() contract.ReportRepository {
	return NewReportRepository(u.store)
}
