package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models/events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends settlement events to Kafka as JSON.
type Publisher struct {
	writer messageWriter
}

// NewPublisher writes to whichever topic each Publish call names, so the
// writer itself carries no default topic.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish is synchronous and returns the write error, if any.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   messageKey(event),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// messageKey keeps every event of one transaction on the same partition.
func messageKey(event any) []byte {
	switch e := event.(type) {
	case events.TransactionSettled:
		return []byte(strconv.FormatInt(e.TransactionID, 10))
	case *events.TransactionSettled:
		return []byte(strconv.FormatInt(e.TransactionID, 10))
	}
	return nil
}
