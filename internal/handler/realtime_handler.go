package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/pkg/serverutils"
	"ai-interviewer-be/internal/service"
	internalWS "ai-interviewer-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const admitTimeout = 5 * time.Second

type RealtimeHandler struct {
	tokens   service.ITokenService
	sessions service.ISessionService
	realtime internalWS.MessageHandler
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewRealtimeHandler(
	tokens service.ITokenService,
	sessions service.ISessionService,
	realtime internalWS.MessageHandler,
	hub *internalWS.Hub,
	log logger.ILogger,
) *RealtimeHandler {
	return &RealtimeHandler{
		tokens:   tokens,
		sessions: sessions,
		realtime: realtime,
		hub:      hub,
		logger:   log,
	}
}

// ServeWs authenticates the session token and upgrades the connection.
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		h.logger.Warn("RealtimeHandler", "Missing session token", map[string]interface{}{"ip": c.IP()})
		return serverutils.WriteError(c, apperror.New(apperror.ErrAuthenticationFailed, "missing session token"))
	}

	claims, err := h.tokens.Verify(tokenStr)
	if err != nil {
		h.logger.Warn("RealtimeHandler", "Invalid session token in handshake", map[string]interface{}{"ip": c.IP(), "error": err.Error()})
		return serverutils.WriteError(c, apperror.New(apperror.ErrAuthenticationFailed, "invalid session token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	session, err := h.sessions.GetSession(c.UserContext(), claims.SessionId)
	if err != nil {
		h.logger.Warn("RealtimeHandler", "Session lookup failed in handshake", map[string]interface{}{"session_id": claims.SessionId, "error": err.Error()})
		if errors.Is(err, apperror.ErrNotFound) {
			return serverutils.WriteError(c, apperror.New(apperror.ErrAuthenticationFailed, "unknown session"))
		}
		return serverutils.WriteError(c, err)
	}
	if session.Status.IsTerminal() {
		return serverutils.WriteError(c, apperror.New(apperror.ErrSessionNotActive, fmt.Sprintf("session is %s", session.Status)))
	}

	return websocket.New(func(conn *websocket.Conn) {
		// admission waits for a completed upgrade
		ctx, cancel := context.WithTimeout(context.Background(), admitTimeout)
		_, err := h.sessions.AcceptConnection(ctx, claims.SessionId)
		cancel()
		if err != nil {
			h.logger.Warn("RealtimeHandler", "Session refused connection", map[string]interface{}{"session_id": claims.SessionId, "error": err.Error()})
			refuse(conn, claims.SessionId.String(), err)
			return
		}

		h.logger.Info("RealtimeHandler", "Starting realtime connection", map[string]interface{}{"session_id": claims.SessionId})
		internalWS.ServeWs(h.hub, conn, claims.SessionId, claims.UserId, h.realtime, h.logger)
		h.logger.Info("RealtimeHandler", "Realtime connection ended", map[string]interface{}{"session_id": claims.SessionId})
	})(c)
}

// refuse tells an upgraded peer why it was turned away and closes the socket.
func refuse(conn *websocket.Conn, sessionID string, err error) {
	pub := apperror.ToPublic(err)
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if msg, encErr := internalWS.NewEnvelope(internalWS.MessageError, sessionID, internalWS.ErrorPayload{Code: pub.Code, Message: pub.Message}); encErr == nil {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, pub.Code))
	conn.Close()
}

func (h *RealtimeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/realtime", h.ServeWs)
}
