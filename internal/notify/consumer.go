package notify

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Consumer drains the alert topic and delivers each alert. Delivery
// here means handing the message to the configured sink; the default
// sink logs it, standing in for the mail relay.
type Consumer struct {
	r    *kafka.Reader
	log  *zerolog.Logger
	sink func(Alert)
}

// NewConsumer builds a consumer for the alert topic. sink may be nil,
// in which case alerts are logged.
func NewConsumer(brokers []string, topic, groupID string, log *zerolog.Logger, sink func(Alert)) *Consumer {
	c := &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		log: log,
	}
	if sink == nil {
		sink = c.logAlert
	}
	c.sink = sink
	return c
}

func (c *Consumer) Close() error { return c.r.Close() }

// Run reads until the context is canceled or the connection drops.
// Dirty messages are logged and skipped, never retried.
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return
		}

		var alert Alert
		if err := json.Unmarshal(m.Value, &alert); err != nil {
			c.log.Error().Err(err).Msg("alert unmarshal failed")
			continue
		}
		if err := alert.Validate(); err != nil {
			c.log.Error().Err(err).Str("alert_id", alert.ID).Msg("invalid alert dropped")
			continue
		}
		c.sink(alert)
	}
}

func (c *Consumer) logAlert(alert Alert) {
	c.log.Info().
		Str("alert_id", alert.ID).
		Str("recipient", alert.Recipient).
		Str("subject", alert.Subject).
		Msg("alert delivered")
}
