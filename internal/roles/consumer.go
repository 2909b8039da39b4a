package roles

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/metrics"
)

const consumerName = "role_assignment"

type assigner interface {
	Assign(ctx context.Context, userID uuid.UUID) error
}

// Consumer processes role-pending events from Pub/Sub.
type Consumer struct {
	engine       assigner
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(engine assigner, subscription *pubsub.Subscriber, logg *logger.Logger, m *metrics.ConsumerMetrics) (*Consumer, error) {
	if engine == nil {
		return nil, errors.New("role engine is required")
	}
	if subscription == nil {
		return nil, errors.New("role subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		engine:       engine,
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

type rolePendingPayload struct {
	UserID string `json:"userId"`
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

	var event rolePendingPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		c.metrics.IncFailure(consumerName)
		return false
	}

	if strings.TrimSpace(event.UserID) == "" {
		c.logg.Error(logCtx, "payload missing user id", fmt.Errorf("empty userId"))
		c.metrics.IncFailure(consumerName)
		return false
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		c.logg.Error(logCtx, "invalid user id in payload", err)
		c.metrics.IncFailure(consumerName)
		return false
	}

	logCtx = c.logg.WithUserID(logCtx, userID.String())

	if err := c.engine.Assign(logCtx, userID); err != nil {
		c.logg.Error(logCtx, "role assignment error", err)
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
