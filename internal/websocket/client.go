package websocket

import (
	"context"
	"sync"
	"time"

	"ai-interviewer-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// MessageHandler receives the traffic of every connection.
type MessageHandler interface {
	OnConnect(ctx context.Context, c *Client)
	HandleMessage(ctx context.Context, c *Client, env Envelope)
	OnDisconnect(c *Client)
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	SessionID uuid.UUID
	UserID    *uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID uuid.UUID, userID *uuid.UUID) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, sendBuffer),
	}
}

// enqueue never blocks. It reports false when the buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.Send)
	return true
}

// readPump pumps messages from the websocket connection to the handler.
func (c *Client) readPump(ctx context.Context, handler MessageHandler, log logger.ILogger) {
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Client", "Unexpected close", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := ParseEnvelope(raw)
		if err != nil {
			log.Debug("Client", "Rejected malformed message", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
			c.Hub.SendTo(c, MessageError, ErrorPayload{Code: "INVALID_MESSAGE", Message: "Message could not be parsed"})
			continue
		}
		handler.HandleMessage(ctx, c, env)
	}
}

// writePump pumps messages from the hub to the websocket connection. Each
// envelope is written as its own text frame.
func (c *Client) writePump(done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		close(done)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs joins the connection to its session channel and pumps it until the
// peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID uuid.UUID, userID *uuid.UUID, handler MessageHandler, log logger.ILogger) {
	client := NewClient(hub, conn, sessionID, userID)
	hub.Join(client)

	ctx, cancel := context.WithCancel(context.Background())
	written := make(chan struct{})
	defer func() {
		cancel()
		hub.Leave(client)
		// the connection is recycled once we return
		<-written
		handler.OnDisconnect(client)
	}()

	go client.writePump(written)
	handler.OnConnect(ctx, client)
	client.readPump(ctx, handler, log)
}
