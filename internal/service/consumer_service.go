package service

import (
	"context"
	"encoding/json"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const LatencySampleTopic = "latency.samples"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService persists latency samples published off the realtime path.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var sample entity.LatencyMetrics
	if err := json.Unmarshal(msg.Payload, &sample); err != nil {
		cs.logger.Error("METRICS", "Failed to unmarshal latency sample", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		// malformed payloads never succeed on redelivery
		msg.Ack()
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MetricsRepository().Save(ctx, &sample); err != nil {
		cs.logger.Error("METRICS", "Failed to save latency sample", map[string]interface{}{
			"session_id": sample.SessionId,
			"error":      err,
		})
		msg.Nack()
		return
	}

	msg.Ack()
}

// SamplePublisher returns the monitor sample hook. Publishing happens on the
// caller's goroutine but never touches the store.
func SamplePublisher(pub message.Publisher, topic string, log logger.ILogger) func(entity.LatencyMetrics) {
	return func(sample entity.LatencyMetrics) {
		payload, err := json.Marshal(sample)
		if err != nil {
			log.Error("METRICS", "Failed to encode latency sample", map[string]interface{}{"error": err})
			return
		}
		if err := pub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			log.Warn("METRICS", "Failed to queue latency sample", map[string]interface{}{
				"session_id": sample.SessionId,
				"error":      err.Error(),
			})
		}
	}
}
