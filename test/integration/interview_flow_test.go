package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ai-interviewer-be/internal/bootstrap"
	"ai-interviewer-be/internal/config"
	"ai-interviewer-be/internal/server"
	"ai-interviewer-be/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

const (
	jwtSecret     = "integration-jwt-secret"
	sessionSecret = "integration-session-secret"
	strongAnswer  = "At my previous company our team was struggling with slow deployments. " +
		"My responsibility was to shorten release time. I automated the pipeline and then I migrated " +
		"the build to containers. As a result, we reduced deploy time by 60% and released twice as often."
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type frame struct {
	Type      string          `json:"type"`
	SessionId string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			LogFilePath:        filepath.Join(dir, "app.log"),
			RealtimeLogPath:    filepath.Join(dir, "realtime.log"),
			CorsAllowedOrigins: "*",
		},
		Database: config.DatabaseConfig{
			Driver:     database.DriverSQLite,
			Connection: filepath.Join(dir, "interview.db"),
		},
		Keys: config.APIKeys{JWTSecret: jwtSecret, SessionSecret: sessionSecret},
		Session: config.SessionConfig{
			TokenTTL:    time.Hour,
			IdleTimeout: time.Minute,
			Issuer:      "interviewer-api",
			Audience:    "interviewer-realtime",
		},
		Latency: config.LatencyConfig{
			EarToMouth:       400 * time.Millisecond,
			TTSStart:         300 * time.Millisecond,
			RoundTrip:        1200 * time.Millisecond,
			BargeIn:          150 * time.Millisecond,
			AvatarRender:     300 * time.Millisecond,
			AvatarBreachTrip: 3,
		},
		VAD:      config.VADConfig{Threshold: 0.5, MinSpeech: 250 * time.Millisecond},
		Scoring:  config.ScoringConfig{FollowUpMinChars: 80, RubricVersion: "v1"},
		Provider: config.ProviderConfig{FailureThreshold: 3, Timeout: 2 * time.Second, LLMProvider: "none"},
	}
}

func newTestApp(t *testing.T) (*fiber.App, *config.Config) {
	t.Helper()
	cfg := testConfig(t)

	db, err := database.NewGormDB(database.GormConfig{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.Connection,
		LogLevel: gormlogger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	container := bootstrap.NewContainer(db, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, container.Start(ctx))

	srv := server.New(cfg, container)
	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		srv.Shutdown(shutdownCtx)
		cancel()
		container.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return srv.GetApp(), cfg
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	return callAs(t, app, method, path, body, "")
}

// callAs sends the request with bearer as the access token when set.
func callAs(t *testing.T, app *fiber.App, method, path string, body interface{}, bearer string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func accessToken(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func startSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	return startSessionAs(t, app, "")
}

func startSessionAs(t *testing.T, app *fiber.App, bearer string) string {
	t.Helper()
	status, env := callAs(t, app, http.MethodPost, "/api/session/start", map[string]interface{}{
		"jobTitle":       "Backend Engineer",
		"jobCompany":     "Acme",
		"jobDescription": "Design, build and operate Go services at scale",
	}, bearer)
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	var data struct {
		SessionId string `json:"sessionId"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "created", data.Status)
	return data.SessionId
}

func issueToken(t *testing.T, app *fiber.App, sessionId string) string {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/api/session/token", map[string]string{"sessionId": sessionId})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	var data struct {
		SessionToken string `json:"sessionToken"`
		WebsocketUrl string `json:"websocketUrl"`
		ExpiresIn    int64  `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.SessionToken)
	assert.Contains(t, data.WebsocketUrl, "/realtime")
	assert.Equal(t, int64(3600), data.ExpiresIn)
	return data.SessionToken
}

func listen(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	return ln.Addr().String()
}

// readUntil skips frames until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == want {
			return f
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": msgType, "data": data}))
}

func TestInterviewFlow(t *testing.T) {
	app, _ := newTestApp(t)
	addr := listen(t, app)

	sessionId := startSession(t, app)
	token := issueToken(t, app, sessionId)

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/realtime?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	start := readUntil(t, conn, "session_start")
	assert.Equal(t, sessionId, start.SessionId)
	var startData struct {
		Session struct {
			Status string `json:"status"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(start.Data, &startData))
	assert.Equal(t, "in_progress", startData.Session.Status)

	speak := readUntil(t, conn, "avatar_speak")
	var question struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(speak.Data, &question))
	assert.NotEmpty(t, question.Text)

	send(t, conn, "avatar_speak", nil)
	send(t, conn, "audio_chunk", map[string]interface{}{"level": 0.8, "final": true})
	send(t, conn, "transcript_final", map[string]interface{}{"text": strongAnswer, "confidence": 0.94, "durationMs": 12000})

	complete := readUntil(t, conn, "turn_complete")
	var scored struct {
		Turn struct {
			Role     string `json:"role"`
			Sequence int64  `json:"sequence"`
		} `json:"turn"`
		Scores []struct {
			Competency string `json:"competency"`
			Value      int    `json:"value"`
		} `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(complete.Data, &scored))
	assert.Equal(t, "candidate", scored.Turn.Role)
	assert.Equal(t, int64(2), scored.Turn.Sequence)
	require.NotEmpty(t, scored.Scores)
	for _, s := range scored.Scores {
		assert.GreaterOrEqual(t, s.Value, 1)
		assert.LessOrEqual(t, s.Value, 5)
	}

	// next question follows the scored answer
	readUntil(t, conn, "avatar_speak")

	send(t, conn, "ping", nil)
	readUntil(t, conn, "pong")

	send(t, conn, "session_end", map[string]string{"reason": "completed"})
	end := readUntil(t, conn, "session_end")
	var endData struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(end.Data, &endData))
	assert.Equal(t, "completed", endData.Status)

	var report struct {
		SessionId    string  `json:"sessionId"`
		OverallScore float64 `json:"overallScore"`
	}
	assert.Eventually(t, func() bool {
		status, env := call(t, app, http.MethodGet, "/api/report/"+sessionId, nil)
		if status != http.StatusOK {
			return false
		}
		return json.Unmarshal(env.Data, &report) == nil
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, sessionId, report.SessionId)
	assert.GreaterOrEqual(t, report.OverallScore, 1.0)
	assert.LessOrEqual(t, report.OverallScore, 5.0)

	status, env := call(t, app, http.MethodGet, "/api/session/"+sessionId, nil)
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		Status       string   `json:"status"`
		TurnCount    int      `json:"turnCount"`
		OverallScore *float64 `json:"overallScore"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "completed", detail.Status)
	assert.GreaterOrEqual(t, detail.TurnCount, 3)
	assert.NotNil(t, detail.OverallScore)

	status, env = call(t, app, http.MethodGet, "/api/session/"+sessionId+"/turns", nil)
	require.Equal(t, http.StatusOK, status)
	var turns struct {
		Turns []struct {
			Sequence int64 `json:"sequence"`
		} `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &turns))
	for i, turn := range turns.Turns {
		assert.Equal(t, int64(i+1), turn.Sequence)
	}

	// a finished session hands out no more tokens
	status, env = call(t, app, http.MethodPost, "/api/session/token", map[string]string{"sessionId": sessionId})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SESSION_NOT_ACTIVE", env.Error.Code)
}

func TestRealtimeRejectsBadTokens(t *testing.T) {
	app, _ := newTestApp(t)
	addr := listen(t, app)
	startSession(t, app)

	for name, url := range map[string]string{
		"missing": "ws://" + addr + "/realtime",
		"garbage": "ws://" + addr + "/realtime?token=not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestSessionAPI_Errors(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/session/start", map[string]string{"jobDescription": "short"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.False(t, env.Success)

	status, env = call(t, app, http.MethodGet, "/api/session/1b4e28ba-2fa1-11d2-883f-0016d3cca427", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RESOURCE_NOT_FOUND", env.Error.Code)

	status, _ = call(t, app, http.MethodGet, "/api/session/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/api/session/token", map[string]string{"sessionId": "1b4e28ba-2fa1-11d2-883f-0016d3cca427"})
	assert.Equal(t, http.StatusNotFound, status)

	sessionId := startSession(t, app)
	status, _ = call(t, app, http.MethodGet, "/api/report/"+sessionId, nil)
	assert.Equal(t, http.StatusNotFound, status, "no report before completion")

	status, _ = call(t, app, http.MethodPost, "/api/session/finish", map[string]string{"sessionId": sessionId, "reason": "paused"})
	assert.Equal(t, http.StatusBadRequest, status)

	// a session that never connected cannot be abandoned, only failed
	status, env = call(t, app, http.MethodPost, "/api/session/finish", map[string]string{"sessionId": sessionId, "reason": "abandoned"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_SESSION_STATE", env.Error.Code)

	status, env = call(t, app, http.MethodPost, "/api/session/finish", map[string]string{"sessionId": sessionId, "reason": "error"})
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	var finished struct {
		Status      string     `json:"status"`
		CompletedAt *time.Time `json:"completedAt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &finished))
	assert.Equal(t, "error", finished.Status)
	assert.NotNil(t, finished.CompletedAt)

	status, _ = call(t, app, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOperationalEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func dial(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/realtime?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRealtimeConnectionsShareSession(t *testing.T) {
	app, _ := newTestApp(t)
	addr := listen(t, app)

	sessionId := startSession(t, app)
	token := issueToken(t, app, sessionId)
	first := dial(t, addr, token)
	readUntil(t, first, "avatar_speak")

	// a second device joins with the same token
	second := dial(t, addr, token)
	start := readUntil(t, second, "session_start")
	assert.Equal(t, sessionId, start.SessionId)

	outsider := dial(t, addr, issueToken(t, app, startSession(t, app)))
	readUntil(t, outsider, "avatar_speak")

	send(t, first, "transcript_final", map[string]interface{}{"text": strongAnswer})
	for _, conn := range []*websocket.Conn{first, second} {
		complete := readUntil(t, conn, "turn_complete")
		assert.Equal(t, sessionId, complete.SessionId)
	}

	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	for {
		_, raw, err := outsider.ReadMessage()
		if err != nil {
			break
		}
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		assert.NotEqual(t, sessionId, f.SessionId, "frames never cross sessions")
	}
}

func TestRealtimeFailedHandshakeDoesNotStartSession(t *testing.T) {
	app, _ := newTestApp(t)
	sessionId := startSession(t, app)
	token := issueToken(t, app, sessionId)

	// upgrade headers without a websocket key or version
	req := httptest.NewRequest(http.MethodGet, "/realtime?token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode)

	status, env := call(t, app, http.MethodGet, "/api/session/"+sessionId, nil)
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "created", detail.Status)
}

func TestRealtimeRejectsEndedSession(t *testing.T) {
	app, _ := newTestApp(t)
	addr := listen(t, app)
	sessionId := startSession(t, app)
	token := issueToken(t, app, sessionId)

	status, _ := call(t, app, http.MethodPost, "/api/session/finish", map[string]string{"sessionId": sessionId, "reason": "error"})
	require.Equal(t, http.StatusOK, status)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/realtime?token="+token, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSessionOwnership(t *testing.T) {
	app, _ := newTestApp(t)
	owner := accessToken(t, uuid.New())
	stranger := accessToken(t, uuid.New())
	sessionId := startSessionAs(t, app, owner)
	body := map[string]string{"sessionId": sessionId}

	status, env := call(t, app, http.MethodPost, "/api/session/token", body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTHENTICATION_ERROR", env.Error.Code)

	status, _ = callAs(t, app, http.MethodPost, "/api/session/token", body, stranger)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = callAs(t, app, http.MethodPost, "/api/session/finish", map[string]string{"sessionId": sessionId, "reason": "error"}, stranger)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = callAs(t, app, http.MethodPost, "/api/session/token", body, owner)
	require.Equal(t, http.StatusOK, status, env.Error.Message)
}

func TestSessionListPages(t *testing.T) {
	app, _ := newTestApp(t)
	owner := accessToken(t, uuid.New())
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = startSessionAs(t, app, owner)
	}
	// another user's session stays out of the listing
	startSessionAs(t, app, accessToken(t, uuid.New()))

	type page struct {
		Sessions []struct {
			Id string `json:"id"`
		} `json:"sessions"`
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
			Pages int `json:"pages"`
		} `json:"pagination"`
	}

	status, env := callAs(t, app, http.MethodGet, "/api/session?page=1&limit=2", nil, owner)
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	var first page
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Len(t, first.Sessions, 2)
	assert.Equal(t, 3, first.Pagination.Total)
	assert.Equal(t, 2, first.Pagination.Pages)

	status, env = callAs(t, app, http.MethodGet, "/api/session?page=2&limit=2", nil, owner)
	require.Equal(t, http.StatusOK, status)
	var second page
	require.NoError(t, json.Unmarshal(env.Data, &second))
	require.Len(t, second.Sessions, 1)

	seen := map[string]bool{second.Sessions[0].Id: true}
	for _, s := range first.Sessions {
		seen[s.Id] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id], "session %s listed", id)
	}
}
