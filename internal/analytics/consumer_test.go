package analytics

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/homease/homease-backend/internal/leads"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/metrics"
)

type stubSink struct {
	envelopes []leads.EventEnvelope
	err       error
}

func (s *stubSink) Ingest(ctx context.Context, envelope leads.EventEnvelope) error {
	if s.err != nil {
		return s.err
	}
	s.envelopes = append(s.envelopes, envelope)
	return nil
}

func newConsumerForTests(sink *stubSink) *Consumer {
	return &Consumer{
		sink:    sink,
		logg:    logger.New(logger.Options{ServiceName: "test"}),
		metrics: metrics.NewConsumerMetrics(nil),
	}
}

func envelopeMessage(t *testing.T) *pubsub.Message {
	t.Helper()
	payload, err := json.Marshal(testEnvelope())
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{ID: "m-1", Data: payload}
}

func TestConsumerProcessIngestsEnvelope(t *testing.T) {
	sink := &stubSink{}
	consumer := newConsumerForTests(sink)

	if nack := consumer.process(context.Background(), envelopeMessage(t)); nack {
		t.Fatal("expected ack")
	}
	if len(sink.envelopes) != 1 {
		t.Fatalf("expected one ingested envelope, got %d", len(sink.envelopes))
	}
}

func TestConsumerProcessDecodesBase64Payload(t *testing.T) {
	sink := &stubSink{}
	consumer := newConsumerForTests(sink)

	payload, err := json.Marshal(testEnvelope())
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	if nack := consumer.process(context.Background(), &pubsub.Message{ID: "m-2", Data: []byte(encoded)}); nack {
		t.Fatal("expected ack")
	}
	if len(sink.envelopes) != 1 {
		t.Fatalf("expected base64 payload ingested, got %d", len(sink.envelopes))
	}
}

func TestConsumerProcessAcksMalformedPayload(t *testing.T) {
	sink := &stubSink{}
	consumer := newConsumerForTests(sink)

	if nack := consumer.process(context.Background(), &pubsub.Message{ID: "m-3", Data: []byte("{not-json")}); nack {
		t.Fatal("malformed payload must not be redelivered")
	}
	if len(sink.envelopes) != 0 {
		t.Fatal("expected no ingestion for malformed payload")
	}
}

func TestConsumerProcessNacksTransientFailure(t *testing.T) {
	sink := &stubSink{err: context.DeadlineExceeded}
	consumer := newConsumerForTests(sink)

	if nack := consumer.process(context.Background(), envelopeMessage(t)); !nack {
		t.Fatal("expected nack for transient sink failure")
	}
}

func TestConsumerProcessAcksDomainFailure(t *testing.T) {
	sink := &stubSink{err: errors.New("row rejected")}
	consumer := newConsumerForTests(sink)

	if nack := consumer.process(context.Background(), envelopeMessage(t)); nack {
		t.Fatal("expected ack for non-transient sink failure")
	}
}
