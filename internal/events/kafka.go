package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/foxzi/copysmith/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a topic keyed by user id
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a writer for topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			AllowAutoTopicCreation: true,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			WriteTimeout:           10 * time.Second,
		},
	}
}

// Publish writes one message per event
func (p *KafkaPublisher) Publish(ctx context.Context, e *models.AnalyticsEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
	})
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
