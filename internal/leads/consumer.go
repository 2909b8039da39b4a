package leads

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

const consumerName = "lead_matching"

type matcher interface {
	Match(ctx context.Context, leadID uuid.UUID, requiredSpecialties []string) error
}

// Consumer processes lead-created events from Pub/Sub and runs matching.
type Consumer struct {
	service      matcher
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(service matcher, subscription *pubsub.Subscriber, logg *logger.Logger, m *metrics.ConsumerMetrics) (*Consumer, error) {
	if service == nil {
		return nil, errors.New("lead service is required")
	}
	if subscription == nil {
		return nil, errors.New("lead subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		service:      service,
		subscription: subscription,
		logg:         logg,
		metrics:      m,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
// Matching outcomes, including failures, are domain-terminal; every message is
// acked and redelivery is the only retry path.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		start := time.Now()
		c.process(ctx, msg)
		c.metrics.ObserveDuration(consumerName, time.Since(start))
		c.metrics.IncAcked(consumerName)
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	payload, err := decodeLeadPayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		c.metrics.IncFailure(consumerName)
		return
	}

	var event LeadCreatedPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		c.metrics.IncFailure(consumerName)
		return
	}

	if strings.TrimSpace(event.LeadID) == "" {
		c.logg.Error(logCtx, "payload missing lead id", fmt.Errorf("empty leadId"))
		c.metrics.IncFailure(consumerName)
		return
	}

	leadID, err := uuid.Parse(event.LeadID)
	if err != nil {
		c.logg.Error(logCtx, "invalid lead id in payload", err)
		c.metrics.IncFailure(consumerName)
		return
	}

	logCtx = c.logg.WithLeadID(logCtx, leadID.String())

	if err := c.service.Match(logCtx, leadID, event.RequiredSpecialties); err != nil {
		c.logg.Error(logCtx, "lead matching error", err)
		c.metrics.IncFailure(consumerName)
	}
}

func decodeLeadPayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}
