package leads

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/homease/homease-backend/pkg/enums"
	"github.com/homease/homease-backend/pkg/logger"
)

// EventEnvelope is the lead analytics event published to the lead-events topic.
type EventEnvelope struct {
	EventID    string              `json:"event_id"`
	EventType  enums.LeadEventType `json:"event_type"`
	LeadID     string              `json:"lead_id"`
	OccurredAt time.Time           `json:"occurred_at"`
	Data       json.RawMessage     `json:"data,omitempty"`
}

type eventPublisher interface {
	PublishJSON(ctx context.Context, payload any, attrs map[string]string) (string, error)
}

// Emitter publishes lead analytics events. Emission is best-effort and never
// affects lead state; failures are logged and dropped.
type Emitter struct {
	pub  eventPublisher
	logg *logger.Logger
	now  func() time.Time
}

// NewEmitter builds an emitter. A nil publisher yields a no-op emitter.
func NewEmitter(pub eventPublisher, logg *logger.Logger) *Emitter {
	return &Emitter{pub: pub, logg: logg, now: time.Now}
}

// Emit publishes one envelope for the lead. Data may be nil.
func (e *Emitter) Emit(ctx context.Context, eventType enums.LeadEventType, leadID uuid.UUID, data any) {
	if e == nil || e.pub == nil {
		return
	}

	envelope := EventEnvelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		LeadID:     leadID.String(),
		OccurredAt: e.now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			e.logError(ctx, leadID, "failed to encode lead event data", err)
			return
		}
		envelope.Data = raw
	}

	attrs := map[string]string{
		"event_id":   envelope.EventID,
		"event_type": string(eventType),
		"lead_id":    envelope.LeadID,
	}
	if _, err := e.pub.PublishJSON(ctx, envelope, attrs); err != nil {
		e.logError(ctx, leadID, "failed to publish lead event", err)
	}
}

func (e *Emitter) logError(ctx context.Context, leadID uuid.UUID, msg string, err error) {
	if e.logg == nil {
		return
	}
	logCtx := e.logg.WithLeadID(ctx, leadID.String())
	e.logg.Error(logCtx, msg, err)
}
