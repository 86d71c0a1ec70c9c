package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-interviewer-be/internal/config"
	"ai-interviewer-be/internal/controller"
	"ai-interviewer-be/internal/handler"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/memory"
	"ai-interviewer-be/internal/repository/unitofwork"
	"ai-interviewer-be/internal/service"
	"ai-interviewer-be/internal/websocket"
	"ai-interviewer-be/pkg/events"
	"ai-interviewer-be/pkg/latency"
	"ai-interviewer-be/pkg/provider/factory"
	"ai-interviewer-be/pkg/scoring"

	pktNats "ai-interviewer-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const reportDurable = "report-generator"

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	ReportController  controller.IReportController

	// Realtime
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Registry *prometheus.Registry
	Logger   logger.ILogger

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
	pubSub  *gochannel.GoChannel
	reports service.IReportService

	reportViaBus bool
}

// NewContainer wires the application. A nil db selects the in-memory store.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		uowFactory = memory.NewRepositoryFactory(memory.NewStore())
	}
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 1024},
		watermillLogger,
	)

	// NATS
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		}
	}

	// Redis
	rdb := newRedis(cfg.App.RedisURL)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 3. Latency monitor
	metrics := latency.NewMetrics(registry)
	monitor := latency.NewMonitor(
		latency.Budgets{
			EarToMouth:       cfg.Latency.EarToMouth,
			TTSStart:         cfg.Latency.TTSStart,
			BargeIn:          cfg.Latency.BargeIn,
			RoundTrip:        cfg.Latency.RoundTrip,
			AvatarRender:     cfg.Latency.AvatarRender,
			AvatarBreachTrip: cfg.Latency.AvatarBreachTrip,
		},
		latency.WithMetrics(metrics),
		latency.WithSampleHandler(service.SamplePublisher(pubSub, service.LatencySampleTopic, sysLogger)),
		latency.WithBreachHandler(breachHandler(publisher, sysLogger)),
	)

	// 4. Services
	sessionRegistry := service.NewSessionRegistry()
	engine := scoring.NewEngine(scoring.Config{
		FollowUpMinChars: cfg.Scoring.FollowUpMinChars,
		RubricVersion:    cfg.Scoring.RubricVersion,
	})

	sessionService := service.NewSessionService(uowFactory, sessionRegistry, publisher, sysLogger, service.SessionServiceConfig{
		IdleTimeout:      cfg.Session.IdleTimeout,
		FailureThreshold: cfg.Provider.FailureThreshold,
	})
	turnService := service.NewTurnService(uowFactory, sessionRegistry, engine, sysLogger)
	reportService := service.NewReportService(uowFactory, sysLogger)
	metricsService := service.NewMetricsService(uowFactory, monitor, sysLogger)
	tokenService := service.NewTokenService(service.TokenServiceConfig{
		Secret:   cfg.Keys.SessionSecret,
		TTL:      cfg.Session.TokenTTL,
		Issuer:   cfg.Session.Issuer,
		Audience: cfg.Session.Audience,
	})
	consumerService := service.NewConsumerService(pubSub, service.LatencySampleTopic, uowFactory, sysLogger)

	generator, err := factory.NewQuestionGenerator(cfg.Provider.LLMProvider, cfg.Provider.LLMModel, cfg.Provider.OllamaBaseURL)
	if err != nil {
		log.Printf("[WARN] %v, falling back to scripted questions", err)
		generator = nil
	}

	realtimeService := service.NewRealtimeService(
		wsHub,
		sessionService,
		turnService,
		monitor,
		generator,
		service.NewHubSpeechOutput(wsHub),
		wsLogger,
		service.RealtimeConfig{
			ProviderTimeout: cfg.Provider.Timeout,
			BargeIn:         latency.BargeInConfig{Threshold: cfg.VAD.Threshold, MinSpeech: cfg.VAD.MinSpeech},
		},
	)

	sessionService.OnTransition(service.FlushMetricsOnTerminal(metricsService, sysLogger))
	reportViaBus := natsPub != nil && natsSub != nil
	if !reportViaBus {
		sessionService.OnTransition(service.ReportOnCompletion(reportService, sysLogger))
	}

	// 5. Controllers
	sessionController := controller.NewSessionController(sessionService, turnService, tokenService, reportService, metricsService, controller.SessionControllerConfig{
		JWTSecret:   cfg.Keys.JWTSecret,
		RealtimeURL: cfg.App.RealtimeURL,
	})
	reportController := controller.NewReportController(reportService)
	realtimeHandler := handler.NewRealtimeHandler(tokenService, sessionService, realtimeService, wsHub, wsLogger)

	return &Container{
		SessionController: sessionController,
		ReportController:  reportController,
		RealtimeHandler:   realtimeHandler,
		WebSocketHub:      wsHub,
		ConsumerService:   consumerService,
		Registry:          registry,
		Logger:            sysLogger,
		natsPub:           natsPub,
		natsSub:           natsSub,
		rdb:               rdb,
		pubSub:            pubSub,
		reports:           reportService,
		reportViaBus:      reportViaBus,
	}
}

// Start launches the background consumers. They stop when ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.reportViaBus {
		handler := service.ReportEventHandler(c.reports, c.Logger)
		if err := c.natsSub.Subscribe(ctx, events.TypeSessionCompleted, reportDurable, handler); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	c.pubSub.Close()
	c.Logger.Sync()
}

func newRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (cross-instance fan-out disabled)", err)
		rdb.Close()
		return nil
	}
	return rdb
}

func breachHandler(publisher events.Publisher, log logger.ILogger) func(latency.Breach) {
	return func(b latency.Breach) {
		log.Warn("LATENCY", "Latency budget breached", map[string]interface{}{
			"session_id": b.SessionId,
			"metric":     b.Metric,
			"observed":   b.Observed.String(),
			"budget":     b.Budget.String(),
			"audio_only": b.AudioOnly,
		})

		// publishing waits for a JetStream ack; keep it off the realtime path
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Publish(ctx, events.BaseEvent{
				Type: events.TypeLatencyBreach,
				Data: map[string]interface{}{
					"sessionId":  b.SessionId.String(),
					"metric":     b.Metric,
					"observedMs": b.Observed.Milliseconds(),
					"budgetMs":   b.Budget.Milliseconds(),
					"audioOnly":  b.AudioOnly,
				},
				OccurredAt: b.OccurredAt,
			}); err != nil {
				log.Warn("LATENCY", "Failed to publish breach event", map[string]interface{}{"session_id": b.SessionId, "error": err.Error()})
			}
		}()
	}
}
