package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes alerts to the operational alert topic.
type Producer struct {
	w *kafka.Writer
}

// NewProducer configures the writer for reliability over latency:
// hash balancing keeps one alert id on one partition, RequireAll waits
// for ISR acknowledgement, and attempts/timeouts bound retries.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Close releases the writer.
func (p *Producer) Close() error { return p.w.Close() }

// Send synchronously publishes one alert, keyed by its id.
func (p *Producer) Send(ctx context.Context, alert Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.ID),
		Value: b,
	})
}
