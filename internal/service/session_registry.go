package service

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

const registryShards = 32

// sessionEntry is the in-process state of one live session. mu is the
// session's single-writer lock: every state change, ledger append and score
// write for the session happens while holding it.
type sessionEntry struct {
	mu sync.Mutex
	// released is set under mu once the entry leaves the registry. Holders
	// must go back to the registry for the current entry.
	released bool

	// ledger cursor, valid once ledgerLoaded
	ledgerLoaded bool
	nextSeq      int64
	lastTurnAt   time.Time

	idleTimer        *time.Timer
	providerFailures int
	providerErrors   int
	partial          string

	lastActivity atomic.Int64 // unix nanos
	connections  atomic.Int32
}

func (e *sessionEntry) touch(now time.Time) {
	e.lastActivity.Store(now.UnixNano())
}

func (e *sessionEntry) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, e.lastActivity.Load()))
}

type registryShard struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*sessionEntry
}

// SessionRegistry maps session ids to their live entries. It is sharded so
// lookups for unrelated sessions never share a lock; per-session writes are
// serialised by the entry's own mutex.
type SessionRegistry struct {
	shards [registryShards]registryShard
}

func NewSessionRegistry() *SessionRegistry {
	r := &SessionRegistry{}
	for i := range r.shards {
		r.shards[i].entries = make(map[uuid.UUID]*sessionEntry)
	}
	return r
}

func (r *SessionRegistry) shard(id uuid.UUID) *registryShard {
	return &r.shards[binary.BigEndian.Uint32(id[12:])%registryShards]
}

func (r *SessionRegistry) lookup(id uuid.UUID) (*sessionEntry, bool) {
	s := r.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// entry returns the live entry for id, creating it on first use.
func (r *SessionRegistry) entry(id uuid.UUID) *sessionEntry {
	if e, ok := r.lookup(id); ok {
		return e
	}
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e
	}
	e := &sessionEntry{}
	e.touch(time.Now())
	s.entries[id] = e
	return e
}

// acquire returns the live entry for id with its mutex held. An entry that
// was retired while the caller waited for it is skipped.
func (r *SessionRegistry) acquire(id uuid.UUID) *sessionEntry {
	for {
		e := r.entry(id)
		e.mu.Lock()
		if !e.released {
			return e
		}
		e.mu.Unlock()
	}
}

// releaseLocked retires e and stops its idle timer. The caller holds e.mu,
// so nobody can act on e after it leaves the registry.
func (r *SessionRegistry) releaseLocked(id uuid.UUID, e *sessionEntry) {
	e.released = true
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
}

// releaseIfMissing retires e when err reports the session as gone. Store
// failures leave the entry in place. The caller holds e.mu.
func (r *SessionRegistry) releaseIfMissing(id uuid.UUID, e *sessionEntry, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		r.releaseLocked(id, e)
	}
}

func (r *SessionRegistry) Len() int {
	n := 0
	for i := range r.shards {
		r.shards[i].mu.RLock()
		n += len(r.shards[i].entries)
		r.shards[i].mu.RUnlock()
	}
	return n
}

// Connections reports how many transport connections are joined to id.
func (r *SessionRegistry) Connections(id uuid.UUID) int {
	if e, ok := r.lookup(id); ok {
		return int(e.connections.Load())
	}
	return 0
}
