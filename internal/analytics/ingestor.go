package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/homease/homease-backend/internal/leads"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/redis"
)

const idempotencyScope = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Ingestor writes lead events to BigQuery while honoring Redis idempotency.
type Ingestor struct {
	client tableInserter
	table  string
	store  redis.IdempotencyStore
	ttl    time.Duration
	logg   *logger.Logger
}

// NewIngestor builds a new analytics ingestor.
func NewIngestor(client tableInserter, table string, store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) (*Ingestor, error) {
	if client == nil {
		return nil, errors.New("bigquery client is required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("bigquery table name is required")
	}
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Ingestor{
		client: client,
		table:  strings.TrimSpace(table),
		store:  store,
		ttl:    ttl,
		logg:   logg,
	}, nil
}

// Ingest inserts one lead event envelope into BigQuery. Replayed event ids
// short-circuit before the insert; on insert failure the idempotency mark is
// released so redelivery can retry.
func (i *Ingestor) Ingest(ctx context.Context, envelope leads.EventEnvelope) error {
	logCtx := i.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": envelope.EventType,
	})

	if strings.TrimSpace(envelope.EventID) == "" {
		return fmt.Errorf("event id missing")
	}

	key := i.store.IdempotencyKey(idempotencyScope, envelope.EventID)
	set, err := i.store.SetNX(ctx, key, "1", i.ttl)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if !set {
		i.logg.Info(logCtx, "event already ingested")
		return nil
	}

	row := buildRow(envelope)
	if err := i.client.InsertRows(ctx, i.table, []any{row}); err != nil {
		i.logg.Error(logCtx, "failed to insert lead event row", err)
		if delErr := i.store.Del(ctx, key); delErr != nil {
			i.logg.Error(logCtx, "failed to release idempotency mark", delErr)
		}
		return fmt.Errorf("insert lead event: %w", err)
	}

	i.logg.Info(logCtx, "lead event ingested")
	return nil
}

type leadEventRow struct {
	EventID    string             `bigquery:"event_id"`
	EventType  string             `bigquery:"event_type"`
	LeadID     string             `bigquery:"lead_id"`
	OccurredAt time.Time          `bigquery:"occurred_at"`
	Payload    cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(envelope leads.EventEnvelope) *leadEventRow {
	payload := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payload.Valid = true
		payload.JSONVal = string(envelope.Data)
	}
	return &leadEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		LeadID:     envelope.LeadID,
		OccurredAt: envelope.OccurredAt,
		Payload:    payload,
	}
}
