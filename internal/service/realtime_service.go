package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/websocket"
	"ai-interviewer-be/pkg/latency"
	"ai-interviewer-be/pkg/provider"

	"github.com/google/uuid"
)

type RealtimeConfig struct {
	ProviderTimeout time.Duration
	BargeIn         latency.BargeInConfig
	// LedgerQueue bounds the persistence jobs waiting per session.
	LedgerQueue int
}

const persistTimeout = 10 * time.Second

// inbound payloads
type (
	stageMark struct {
		Stage entity.Stage `json:"stage"`
		At    *time.Time   `json:"at"`
	}
	transcriptPayload struct {
		Text       string                 `json:"text"`
		Confidence float64                `json:"confidence"`
		DurationMs int64                  `json:"durationMs"`
		Competency *entity.CompetencyType `json:"competency"`
		StarTags   []entity.StarElement   `json:"starTags"`
	}
	turnPayload struct {
		Role       entity.TurnRole        `json:"role"`
		Content    string                 `json:"content"`
		Competency *entity.CompetencyType `json:"competency"`
	}
	audioPayload struct {
		Level float64 `json:"level"`
		Final bool    `json:"final"`
	}
	sessionEndPayload struct {
		Reason entity.FinishReason `json:"reason"`
	}
)

// outbound payloads
type (
	SessionStartPayload struct {
		Session   *entity.Session `json:"session"`
		AudioOnly bool            `json:"audioOnly"`
	}
	AvatarSpeakPayload struct {
		TurnId    uuid.UUID `json:"turnId"`
		Text      string    `json:"text"`
		AudioOnly bool      `json:"audioOnly"`
		Fallback  bool      `json:"fallback,omitempty"`
	}
	SessionEndPayload struct {
		Status entity.SessionStatus `json:"status"`
		Reason string               `json:"reason,omitempty"`
	}
)

// sessionRuntime is the live per-session state of the realtime path. It
// exists while at least one connection is joined.
type sessionRuntime struct {
	detector *latency.BargeInDetector
	cancel   context.CancelFunc
	clients  int
	opened   atomic.Bool
	// ledger feeds the session's persistence worker. Sends and the final
	// close happen under RealtimeService.mu.
	ledger chan func()
}

// RealtimeService dispatches inbound realtime events to the session core and
// fans the results back out to the session channel.
type RealtimeService struct {
	hub       *websocket.Hub
	sessions  ISessionService
	turns     ITurnService
	monitor   *latency.Monitor
	generator provider.QuestionGenerator
	fallback  provider.QuestionGenerator
	speech    provider.SpeechOutput
	logger    logger.ILogger
	cfg       RealtimeConfig

	mu       sync.Mutex
	runtimes map[uuid.UUID]*sessionRuntime
}

func NewRealtimeService(
	hub *websocket.Hub,
	sessions ISessionService,
	turns ITurnService,
	monitor *latency.Monitor,
	generator provider.QuestionGenerator,
	speech provider.SpeechOutput,
	log logger.ILogger,
	cfg RealtimeConfig,
) *RealtimeService {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 5 * time.Second
	}
	if cfg.LedgerQueue <= 0 {
		cfg.LedgerQueue = 32
	}
	fallback := provider.NewStaticGenerator()
	if generator == nil {
		generator = fallback
	}
	if speech == nil {
		speech = NewHubSpeechOutput(hub)
	}
	s := &RealtimeService{
		hub:       hub,
		sessions:  sessions,
		turns:     turns,
		monitor:   monitor,
		generator: generator,
		fallback:  fallback,
		speech:    speech,
		logger:    log,
		cfg:       cfg,
		runtimes:  make(map[uuid.UUID]*sessionRuntime),
	}
	sessions.OnTransition(s.onTransition)
	return s
}

func (s *RealtimeService) OnConnect(ctx context.Context, c *websocket.Client) {
	rt := s.acquire(c.SessionID)

	session, err := s.sessions.GetSession(ctx, c.SessionID)
	if err != nil {
		s.sendError(c, err)
		return
	}
	s.hub.SendTo(c, websocket.MessageSessionStart, SessionStartPayload{
		Session:   session,
		AudioOnly: s.monitor.AudioOnly(c.SessionID),
	})

	if !rt.opened.CompareAndSwap(false, true) {
		return
	}
	last, err := s.turns.LatestTurn(ctx, c.SessionID, nil)
	if err == nil && last == nil {
		go s.askNext(c.SessionID, nil)
	}
}

func (s *RealtimeService) OnDisconnect(c *websocket.Client) {
	s.sessions.HandleDisconnect(c.SessionID)
	s.releaseRuntime(c.SessionID)
}

func (s *RealtimeService) HandleMessage(ctx context.Context, c *websocket.Client, env websocket.Envelope) {
	if env.SessionId != "" && env.SessionId != c.SessionID.String() {
		s.hub.SendTo(c, websocket.MessageError, websocket.ErrorPayload{
			Code:    "SESSION_MISMATCH",
			Message: "Message addressed to a different session",
		})
		return
	}

	explicitStage, err := s.recordStageMark(c.SessionID, env)
	if err != nil {
		s.sendError(c, err)
		return
	}

	switch env.Type {
	case websocket.MessagePing:
		s.hub.SendTo(c, websocket.MessagePong, nil)

	case websocket.MessageTranscriptPartial:
		var p transcriptPayload
		if err := env.Decode(&p); err != nil {
			s.sendError(c, apperror.Validation("invalid transcript payload"))
			return
		}
		s.turns.SetPartial(c.SessionID, p.Text)
		s.hub.Broadcast(ctx, c.SessionID, websocket.MessageTranscriptPartial, map[string]string{"text": p.Text})

	case websocket.MessageTranscriptFinal:
		if !explicitStage {
			s.recordStage(c.SessionID, entity.StageSTTResult, time.Now())
		}
		s.persist(ctx, c, func(ctx context.Context) { s.handleTranscriptFinal(ctx, c, env) })

	case websocket.MessageTurnComplete:
		s.persist(ctx, c, func(ctx context.Context) { s.handleTurnComplete(ctx, c, env) })

	case websocket.MessageAudioChunk:
		var p audioPayload
		if err := env.Decode(&p); err != nil {
			s.sendError(c, apperror.Validation("invalid audio payload"))
			return
		}
		if rt := s.runtime(c.SessionID); rt != nil {
			rt.detector.ObserveLevel(p.Level)
		}
		if p.Final && !explicitStage {
			s.recordStage(c.SessionID, entity.StageCandidateAudioEnd, time.Now())
		}

	case websocket.MessageAvatarSpeak:
		// playback started on the client
		if !explicitStage {
			s.recordStage(c.SessionID, entity.StageTTSStart, time.Now())
		}
		if rt := s.runtime(c.SessionID); rt != nil {
			rt.detector.SetSpeaking(true)
		}

	case websocket.MessageAvatarStop:
		if rt := s.runtime(c.SessionID); rt != nil {
			rt.detector.SetSpeaking(false)
		}

	case websocket.MessageBargeIn:
		// client-side voice activity detection
		s.interrupt(c.SessionID)

	case websocket.MessageSessionEnd:
		var p sessionEndPayload
		if err := env.Decode(&p); err != nil {
			s.sendError(c, apperror.Validation("invalid finish reason"))
			return
		}
		s.persist(ctx, c, func(ctx context.Context) {
			if _, err := s.sessions.Finish(ctx, c.SessionID, p.Reason); err != nil {
				s.sendError(c, err)
			}
		})
	}
}

// persist hands fn to the session's ledger worker. Store writes run there in
// arrival order while the read loop keeps feeding audio to the detector.
func (s *RealtimeService) persist(ctx context.Context, c *websocket.Client, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	job := func() {
		ctx, cancel := context.WithTimeout(detached, persistTimeout)
		defer cancel()
		fn(ctx)
	}
	if !s.enqueue(c.SessionID, job) {
		s.sendError(c, apperror.New(apperror.ErrOverloaded, "session ledger queue is full"))
	}
}

func (s *RealtimeService) handleTranscriptFinal(ctx context.Context, c *websocket.Client, env websocket.Envelope) {
	var p transcriptPayload
	if err := env.Decode(&p); err != nil {
		s.sendError(c, apperror.Validation("invalid transcript payload"))
		return
	}

	input := AppendTurnInput{
		Role:       entity.TurnRoleCandidate,
		Content:    p.Text,
		Competency: p.Competency,
		StarTags:   p.StarTags,
		Final:      true,
	}
	if p.DurationMs > 0 || p.Confidence > 0 {
		input.Audio = &entity.AudioMetadata{DurationMs: p.DurationMs, Confidence: p.Confidence}
	}

	scored, err := s.turns.AppendScored(ctx, c.SessionID, input)
	if err != nil {
		s.sendError(c, err)
		return
	}

	s.hub.Broadcast(ctx, c.SessionID, websocket.MessageTranscriptFinal, scored.Turn)
	s.hub.Broadcast(ctx, c.SessionID, websocket.MessageTurnComplete, scored)

	followUp := scored.FollowUp
	go s.askNext(c.SessionID, &followUp)
}

func (s *RealtimeService) handleTurnComplete(ctx context.Context, c *websocket.Client, env websocket.Envelope) {
	var p turnPayload
	if err := env.Decode(&p); err != nil {
		s.sendError(c, apperror.Validation("invalid turn payload"))
		return
	}
	if p.Role == "" {
		p.Role = entity.TurnRoleInterviewer
	}

	input := AppendTurnInput{Role: p.Role, Content: p.Content, Competency: p.Competency, Final: true}
	if p.Role == entity.TurnRoleCandidate {
		scored, err := s.turns.AppendScored(ctx, c.SessionID, input)
		if err != nil {
			s.sendError(c, err)
			return
		}
		s.hub.Broadcast(ctx, c.SessionID, websocket.MessageTurnComplete, scored)
		return
	}

	turn, err := s.turns.AppendTurn(ctx, c.SessionID, input)
	if err != nil {
		s.sendError(c, err)
		return
	}
	s.hub.Broadcast(ctx, c.SessionID, websocket.MessageTurnComplete, ScoredTurn{Turn: turn, Scores: []*entity.Score{}})
}

// askNext generates and announces the interviewer's next utterance. A failed
// or slow generator degrades to the scripted questions.
func (s *RealtimeService) askNext(sessionID uuid.UUID, followUp *entity.FollowUpSignal) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*s.cfg.ProviderTimeout)
	defer cancel()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil || session.Status != entity.SessionStatusInProgress {
		return
	}
	history, err := s.turns.ListTurns(ctx, sessionID)
	if err != nil {
		s.logger.Error("REALTIME", "Failed to load history", map[string]interface{}{"session_id": sessionID, "error": err})
		return
	}

	req := provider.QuestionRequest{
		Job:        session.Job,
		Competency: nextCompetency(session, history),
		History:    history,
		FollowUp:   followUp,
	}

	fallback := false
	text, err := provider.Call(ctx, s.cfg.ProviderTimeout, "llm", func(ctx context.Context) (string, error) {
		return s.generator.NextQuestion(ctx, req)
	})
	if err != nil {
		updated, ferr := s.sessions.RecordProviderFailure(ctx, sessionID, err)
		if ferr != nil || updated.Status != entity.SessionStatusInProgress {
			return
		}
		fallback = true
		text, _ = s.fallback.NextQuestion(ctx, req)
	} else {
		s.sessions.RecordProviderSuccess(sessionID)
	}
	s.recordStage(sessionID, entity.StageLLMResponse, time.Now())

	var competency *entity.CompetencyType
	if req.Competency != nil {
		t := req.Competency.Type
		competency = &t
	}
	turn, err := s.turns.AppendTurn(ctx, sessionID, AppendTurnInput{
		Role:       entity.TurnRoleInterviewer,
		Content:    text,
		Competency: competency,
		Final:      true,
	})
	if err != nil {
		if !errors.Is(err, apperror.ErrSessionNotActive) {
			s.logger.Error("REALTIME", "Failed to record interviewer turn", map[string]interface{}{"session_id": sessionID, "error": err})
		}
		return
	}

	s.hub.Broadcast(ctx, sessionID, websocket.MessageAvatarSpeak, AvatarSpeakPayload{
		TurnId:    turn.Id,
		Text:      text,
		AudioOnly: s.monitor.AudioOnly(sessionID),
		Fallback:  fallback,
	})
}

// nextCompetency rotates through the session competencies, one per question.
func nextCompetency(session *entity.Session, history []*entity.Turn) *entity.Competency {
	if len(session.Competencies) == 0 {
		return nil
	}
	asked := 0
	for _, t := range history {
		if t.Role == entity.TurnRoleInterviewer {
			asked++
		}
	}
	if asked == 0 {
		return nil
	}
	c := session.Competencies[(asked-1)%len(session.Competencies)]
	return &c
}

func (s *RealtimeService) onTransition(ctx context.Context, session *entity.Session, t *entity.SessionTransition) {
	if !t.To.IsTerminal() {
		return
	}
	s.hub.Broadcast(ctx, session.Id, websocket.MessageSessionEnd, SessionEndPayload{Status: t.To, Reason: t.Reason})
}

func (s *RealtimeService) recordStageMark(sessionID uuid.UUID, env websocket.Envelope) (bool, error) {
	if len(env.Data) == 0 || env.Data[0] != '{' {
		return false, nil
	}
	var mark stageMark
	if err := env.Decode(&mark); err != nil {
		return false, apperror.Validation("unknown pipeline stage")
	}
	if mark.Stage == "" {
		return false, nil
	}
	at := time.Now()
	if mark.At != nil {
		at = *mark.At
	}
	if err := s.monitor.RecordStage(sessionID, mark.Stage, at); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RealtimeService) recordStage(sessionID uuid.UUID, stage entity.Stage, at time.Time) {
	if err := s.monitor.RecordStage(sessionID, stage, at); err != nil {
		s.logger.Error("REALTIME", "Failed to record stage", map[string]interface{}{"session_id": sessionID, "stage": stage, "error": err})
	}
}

func (s *RealtimeService) sendError(c *websocket.Client, err error) {
	pub := apperror.ToPublic(err)
	if pub.Status >= 500 {
		s.logger.Error("REALTIME", "Realtime request failed", map[string]interface{}{"session_id": c.SessionID, "error": err})
	} else {
		s.logger.Debug("REALTIME", "Realtime request rejected", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
	}
	s.hub.SendTo(c, websocket.MessageError, websocket.ErrorPayload{Code: pub.Code, Message: pub.Message})
}

// Barge-in path

func (s *RealtimeService) acquire(sessionID uuid.UUID) *sessionRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[sessionID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		rt = &sessionRuntime{
			detector: latency.NewBargeInDetector(sessionID, s.cfg.BargeIn),
			cancel:   cancel,
			ledger:   make(chan func(), s.cfg.LedgerQueue),
		}
		s.runtimes[sessionID] = rt
		go s.watchBargeIn(ctx, sessionID, rt.detector)
		go runLedger(rt.ledger)
	}
	rt.clients++
	return rt
}

func (s *RealtimeService) runtime(sessionID uuid.UUID) *sessionRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtimes[sessionID]
}

func (s *RealtimeService) releaseRuntime(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[sessionID]
	if !ok {
		return
	}
	rt.clients--
	if rt.clients <= 0 {
		rt.cancel()
		// queued jobs still drain
		close(rt.ledger)
		delete(s.runtimes, sessionID)
	}
}

// enqueue never blocks the caller. It reports false when the session has no
// runtime or its queue is full.
func (s *RealtimeService) enqueue(sessionID uuid.UUID, job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[sessionID]
	if !ok {
		return false
	}
	select {
	case rt.ledger <- job:
		return true
	default:
		return false
	}
}

func runLedger(jobs <-chan func()) {
	for job := range jobs {
		job()
	}
}

// watchBargeIn turns detector events into interrupts. It never touches the store.
func (s *RealtimeService) watchBargeIn(ctx context.Context, sessionID uuid.UUID, d *latency.BargeInDetector) {
	minSpeech := d.Config().MinSpeech
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.Events():
			s.interrupt(sessionID)
			d.SetSpeaking(false)
			s.monitor.RecordBargeIn(sessionID, ev.Detection(minSpeech))
		}
	}
}

func (s *RealtimeService) interrupt(sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.speech.Interrupt(ctx, sessionID); err != nil {
		s.logger.Warn("REALTIME", "Speech interrupt failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
	if rt := s.runtime(sessionID); rt != nil {
		rt.detector.SetSpeaking(false)
	}
}

// HubSpeechOutput interrupts the client-side speech renderer through the
// session channel.
type HubSpeechOutput struct {
	hub *websocket.Hub
}

func NewHubSpeechOutput(hub *websocket.Hub) *HubSpeechOutput {
	return &HubSpeechOutput{hub: hub}
}

func (o *HubSpeechOutput) Interrupt(ctx context.Context, sessionID uuid.UUID) error {
	if err := o.hub.Broadcast(ctx, sessionID, websocket.MessageBargeIn, nil); err != nil {
		return err
	}
	return o.hub.Broadcast(ctx, sessionID, websocket.MessageAvatarStop, map[string]string{"reason": "barge_in"})
}
