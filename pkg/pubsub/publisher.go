package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

const defaultPublishTimeout = 30 * time.Second

// JSONPublisher publishes JSON payloads to a single topic and waits for the
// server-assigned message id.
type JSONPublisher struct {
	pub     *pubsub.Publisher
	timeout time.Duration
}

// NewJSONPublisher wraps a topic publisher. Returns nil when the publisher is nil
// so callers can treat an unconfigured topic as absent.
func NewJSONPublisher(pub *pubsub.Publisher) *JSONPublisher {
	if pub == nil {
		return nil
	}
	return &JSONPublisher{pub: pub, timeout: defaultPublishTimeout}
}

// PublishJSON marshals payload and publishes it with the given attributes.
func (p *JSONPublisher) PublishJSON(ctx context.Context, payload any, attrs map[string]string) (string, error) {
	if p == nil || p.pub == nil {
		return "", errors.New("publisher not configured")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.pub.Publish(publishCtx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	id, err := result.Get(publishCtx)
	if err != nil {
		return "", fmt.Errorf("publishing message: %w", err)
	}
	return id, nil
}
