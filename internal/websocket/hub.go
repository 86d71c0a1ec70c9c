package websocket

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	"ai-interviewer-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubShards    = 32
	redisChannel = "interview_realtime"
)

type hubShard struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*Client]struct{}
}

// Hub groups connections into per-session channels. Delivery is best-effort:
// nothing is persisted or replayed, and a client whose buffer is full is
// dropped instead of blocking the broadcaster.
type Hub struct {
	shards [hubShards]hubShard

	// Redis connection for cross-instance fan-out
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	h := &Hub{
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
	for i := range h.shards {
		h.shards[i].sessions = make(map[uuid.UUID]map[*Client]struct{})
	}
	return h
}

func (h *Hub) shard(sessionID uuid.UUID) *hubShard {
	return &h.shards[binary.BigEndian.Uint32(sessionID[12:])%hubShards]
}

// Join adds c to its session channel. It returns once c is reachable by Broadcast.
func (h *Hub) Join(c *Client) {
	s := h.shard(c.SessionID)
	s.mu.Lock()
	members, ok := s.sessions[c.SessionID]
	if !ok {
		members = make(map[*Client]struct{})
		s.sessions[c.SessionID] = members
	}
	members[c] = struct{}{}
	n := len(members)
	s.mu.Unlock()

	h.logger.Info("Hub", "Client joined session", map[string]interface{}{"session_id": c.SessionID, "members": n})
}

// Leave removes c and closes its send buffer. Calling it twice is harmless.
func (h *Hub) Leave(c *Client) {
	s := h.shard(c.SessionID)
	s.mu.Lock()
	members, ok := s.sessions[c.SessionID]
	if ok {
		delete(members, c)
		if len(members) == 0 {
			delete(s.sessions, c.SessionID)
		}
	}
	n := len(members)
	s.mu.Unlock()

	if c.close() {
		h.logger.Info("Hub", "Client left session", map[string]interface{}{"session_id": c.SessionID, "members": n})
	}
}

func (h *Hub) Members(sessionID uuid.UUID) int {
	s := h.shard(sessionID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

// Broadcast delivers an event to every connection joined to sessionID on this
// instance and, when Redis is configured, on every other instance.
func (h *Hub) Broadcast(ctx context.Context, sessionID uuid.UUID, t MessageType, payload interface{}) error {
	data, err := NewEnvelope(t, sessionID.String(), payload)
	if err != nil {
		return err
	}
	h.deliverLocal(sessionID, data)

	if h.rdb != nil {
		msg, _ := json.Marshal(clusterMessage{Origin: h.instanceID, SessionID: sessionID.String(), Message: data})
		if err := h.rdb.Publish(ctx, redisChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	}
	return nil
}

// SendTo delivers an event to a single connection only.
func (h *Hub) SendTo(c *Client, t MessageType, payload interface{}) error {
	data, err := NewEnvelope(t, c.SessionID.String(), payload)
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		h.drop(c)
	}
	return nil
}

func (h *Hub) deliverLocal(sessionID uuid.UUID, data []byte) int {
	s := h.shard(sessionID)
	s.mu.RLock()
	var slow []*Client
	delivered := 0
	for c := range s.sessions[sessionID] {
		if c.enqueue(data) {
			delivered++
		} else {
			slow = append(slow, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
	return delivered
}

func (h *Hub) drop(c *Client) {
	h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"session_id": c.SessionID})
	h.Leave(c)
}

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// Run relays broadcasts published by other instances until ctx is done.
// Without Redis it returns immediately.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.relay([]byte(msg.Payload))
		}
	}
}

func (h *Hub) relay(raw []byte) {
	var payload clusterMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if payload.Origin == h.instanceID {
		return
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return
	}
	h.deliverLocal(sessionID, payload.Message)
}
