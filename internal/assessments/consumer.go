package assessments

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

const consumerName = "assessment_pipeline"

type processor interface {
	Process(ctx context.Context, assessmentID, userID uuid.UUID) error
}

// Consumer processes assessment-process events from Pub/Sub and runs the
// analysis pipeline.
type Consumer struct {
	pipeline     processor
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(pipeline processor, subscription *pubsub.Subscriber, logg *logger.Logger, m *metrics.ConsumerMetrics) (*Consumer, error) {
	if pipeline == nil {
		return nil, errors.New("assessment pipeline is required")
	}
	if subscription == nil {
		return nil, errors.New("assessment subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		pipeline:     pipeline,
		subscription: subscription,
		logg:         logg,
		metrics:      m,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
// Pipeline failures are recorded on the assessment row, so every message is
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

	payload, err := decodeProcessPayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		c.metrics.IncFailure(consumerName)
		return
	}

	var event ProcessPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		c.metrics.IncFailure(consumerName)
		return
	}

	if strings.TrimSpace(event.AssessmentID) == "" || strings.TrimSpace(event.UserID) == "" {
		c.logg.Error(logCtx, "payload missing ids", fmt.Errorf("empty assessmentId or userId"))
		c.metrics.IncFailure(consumerName)
		return
	}

	assessmentID, err := uuid.Parse(event.AssessmentID)
	if err != nil {
		c.logg.Error(logCtx, "invalid assessment id in payload", err)
		c.metrics.IncFailure(consumerName)
		return
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		c.logg.Error(logCtx, "invalid user id in payload", err)
		c.metrics.IncFailure(consumerName)
		return
	}

	logCtx = c.logg.WithAssessmentID(logCtx, assessmentID.String())

	if err := c.pipeline.Process(logCtx, assessmentID, userID); err != nil {
		c.logg.Error(logCtx, "assessment pipeline error", err)
		c.metrics.IncFailure(consumerName)
	}
}

func decodeProcessPayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}
