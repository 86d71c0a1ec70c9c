package service

import (
	"context"
	"testing"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/memory"
	"ai-interviewer-be/pkg/latency"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerService_PersistsPublishedSamples(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.NewNopLogger()
	uowFactory := memory.NewRepositoryFactory(memory.NewStore())
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewConsumerService(pubSub, LatencySampleTopic, uowFactory, log)
	require.NoError(t, consumer.Consume(ctx))

	monitor := latency.NewMonitor(latency.DefaultBudgets(),
		latency.WithSampleHandler(SamplePublisher(pubSub, LatencySampleTopic, log)),
	)
	sessionId := uuid.New()
	base := time.Now()
	require.NoError(t, monitor.RecordStage(sessionId, entity.StageCandidateAudioEnd, base))
	require.NoError(t, monitor.RecordStage(sessionId, entity.StageSTTResult, base.Add(80*time.Millisecond)))
	require.NoError(t, monitor.RecordStage(sessionId, entity.StageTTSStart, base.Add(300*time.Millisecond)))
	require.NoError(t, monitor.RecordStage(sessionId, entity.StageAvatarFrame, base.Add(350*time.Millisecond)))

	repo := uowFactory.NewUnitOfWork(ctx).MetricsRepository()
	require.Eventually(t, func() bool {
		samples, err := repo.ListBySession(ctx, sessionId)
		return err == nil && len(samples) == 1
	}, waitFor, 10*time.Millisecond)

	samples, err := repo.ListBySession(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, entity.MetricsScopeTurn, samples[0].Scope)
	assert.Equal(t, 80*time.Millisecond, samples[0].Average.STT)
	assert.Equal(t, 350*time.Millisecond, samples[0].Average.RoundTrip)
}

func TestConsumerService_AcksMalformedPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()
	consumer := NewConsumerService(pubSub, LatencySampleTopic, memory.NewRepositoryFactory(memory.NewStore()), logger.NewNopLogger()).(*consumerService)

	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	consumer.processMessage(ctx, msg)

	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		t.Fatal("malformed payload must not be redelivered")
	case <-time.After(time.Second):
		t.Fatal("message was neither acked nor nacked")
	}
}

func TestMetricsService_FlushStoresSummary(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, SessionServiceConfig{})
	monitor := latency.NewMonitor(latency.DefaultBudgets())
	metrics := NewMetricsService(ts.uowFactory, monitor, logger.NewNopLogger())
	session := ts.startSession(t, nil)

	base := time.Now()
	require.NoError(t, monitor.RecordStage(session.Id, entity.StageCandidateAudioEnd, base))
	require.NoError(t, monitor.RecordStage(session.Id, entity.StageTTSStart, base.Add(200*time.Millisecond)))
	require.NoError(t, monitor.RecordStage(session.Id, entity.StageAvatarFrame, base.Add(250*time.Millisecond)))

	live, err := metrics.SessionMetrics(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, live.Live.SampleCount)
	assert.Nil(t, live.Summary)

	summary, err := metrics.FlushSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, entity.MetricsScopeSession, summary.Scope)
	assert.Equal(t, 200*time.Millisecond, summary.Average.EarToMouth)

	after, err := metrics.SessionMetrics(ctx, session.Id)
	require.NoError(t, err)
	require.NotNil(t, after.Summary)
	assert.Equal(t, summary.Id, after.Summary.Id)
	assert.Zero(t, after.Live.SampleCount)
}
