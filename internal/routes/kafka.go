package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ai-interview-analysis-service/internal/spec"
)

// Kafka publishes payloads to a single topic, keyed by session id so all
// payloads of one session land on the same partition.
type Kafka struct {
	id     string
	topic  string
	writer *kafka.Writer
}

// NewKafka builds a Kafka route from its spec declaration.
func NewKafka(rc spec.Route) (*Kafka, error) {
	if len(rc.Brokers) == 0 {
		return nil, fmt.Errorf("kafka route has no brokers")
	}
	if rc.Topic == "" {
		return nil, fmt.Errorf("kafka route has no topic")
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(rc.Brokers...),
		Topic:        rc.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	return &Kafka{id: rc.ID, topic: rc.Topic, writer: writer}, nil
}

func (k *Kafka) ID() string   { return k.id }
func (k *Kafka) Type() string { return spec.RouteKafka }

// Deliver writes one message keyed by session id.
func (k *Kafka) Deliver(ctx context.Context, payload Payload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal kafka payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(payload.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(payload.EventType)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to topic %s: %w", k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error { return k.writer.Close() }
