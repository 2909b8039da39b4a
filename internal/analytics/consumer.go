package analytics

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/homease/homease-backend/internal/leads"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/metrics"
)

const consumerName = "analytics"

type ingestor interface {
	Ingest(ctx context.Context, envelope leads.EventEnvelope) error
}

// Consumer feeds lead events from Pub/Sub into the analytics sink.
type Consumer struct {
	sink         ingestor
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(sink ingestor, subscription *pubsub.Subscriber, logg *logger.Logger, m *metrics.ConsumerMetrics) (*Consumer, error) {
	if sink == nil {
		return nil, errors.New("ingestor is required")
	}
	if subscription == nil {
		return nil, errors.New("lead events subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		sink:         sink,
		subscription: subscription,
		logg:         logg,
		metrics:      m,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		start := time.Now()
		nack := c.process(ctx, msg)
		c.metrics.ObserveDuration(consumerName, time.Since(start))
		if nack {
			c.metrics.IncNacked(consumerName)
			msg.Nack()
			return
		}
		c.metrics.IncAcked(consumerName)
		msg.Ack()
	})
}

// process returns true when the message should be redelivered.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	payload, err := decodePayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		c.metrics.IncFailure(consumerName)
		return false
	}

	var envelope leads.EventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		c.metrics.IncFailure(consumerName)
		return false
	}

	if err := c.sink.Ingest(logCtx, envelope); err != nil {
		c.logg.Error(logCtx, "lead event ingestion error", err)
		c.metrics.IncFailure(consumerName)
		if isTransientError(err) {
			return true
		}
		return false
	}

	return false
}

func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
