package roles

import (
	"context"
	"errors"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/metrics"
)

type stubAssigner struct {
	assigned []uuid.UUID
	err      error
}

func (s *stubAssigner) Assign(ctx context.Context, userID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.assigned = append(s.assigned, userID)
	return nil
}

func newRoleConsumerForTests(engine *stubAssigner) *Consumer {
	return &Consumer{
		engine:  engine,
		logg:    logger.New(logger.Options{ServiceName: "test"}),
		metrics: metrics.NewConsumerMetrics(nil),
	}
}

func rolePendingMessage(userID string) *pubsub.Message {
	return &pubsub.Message{ID: "m-1", Data: []byte(`{"userId": "` + userID + `"}`)}
}

func TestRoleConsumerProcessAssignsUser(t *testing.T) {
	engine := &stubAssigner{}
	consumer := newRoleConsumerForTests(engine)
	userID := uuid.New()

	if nack := consumer.process(context.Background(), rolePendingMessage(userID.String())); nack {
		t.Fatal("expected ack")
	}
	if len(engine.assigned) != 1 || engine.assigned[0] != userID {
		t.Fatalf("expected assignment for %s, got %v", userID, engine.assigned)
	}
}

func TestRoleConsumerProcessAcksMalformedPayload(t *testing.T) {
	engine := &stubAssigner{}
	consumer := newRoleConsumerForTests(engine)

	if nack := consumer.process(context.Background(), &pubsub.Message{ID: "m-2", Data: []byte("{not-json")}); nack {
		t.Fatal("malformed payload must not be redelivered")
	}
	if len(engine.assigned) != 0 {
		t.Fatal("expected no assignment for malformed payload")
	}
}

func TestRoleConsumerProcessAcksMissingUserID(t *testing.T) {
	engine := &stubAssigner{}
	consumer := newRoleConsumerForTests(engine)

	if nack := consumer.process(context.Background(), rolePendingMessage(" ")); nack {
		t.Fatal("missing user id must not be redelivered")
	}
	if len(engine.assigned) != 0 {
		t.Fatal("expected no assignment without a user id")
	}
}

func TestRoleConsumerProcessNacksTransientFailure(t *testing.T) {
	engine := &stubAssigner{err: context.DeadlineExceeded}
	consumer := newRoleConsumerForTests(engine)

	if nack := consumer.process(context.Background(), rolePendingMessage(uuid.NewString())); !nack {
		t.Fatal("expected nack for transient assignment failure")
	}
}

func TestRoleConsumerProcessAcksDomainFailure(t *testing.T) {
	engine := &stubAssigner{err: errors.New("user missing")}
	consumer := newRoleConsumerForTests(engine)

	if nack := consumer.process(context.Background(), rolePendingMessage(uuid.NewString())); nack {
		t.Fatal("expected ack for non-transient assignment failure")
	}
}
