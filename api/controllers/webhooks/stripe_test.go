package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/homease/homease-backend/pkg/errors"
)

const testSigningSecret = "whsec_test_secret"

type stubWebhookService struct {
	events []string
	err    error
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event.ID)
	return nil
}

type stubGuard struct {
	seen    map[string]bool
	marked  []string
	deleted []string
}

func (s *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if s.seen[eventID] {
		return true, nil
	}
	s.marked = append(s.marked, eventID)
	return false, nil
}

func (s *stubGuard) Delete(ctx context.Context, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

type stubSigningClient struct{}

func (stubSigningClient) SigningSecret() string {
	return testSigningSecret
}

func eventPayload() []byte {
	return fmt.Appendf(nil, `{"id": "evt_1", "api_version": %q, "type": "invoice.paid", "data": {"object": {}}}`, stripe.APIVersion)
}

func signatureHeader(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, handler http.HandlerFunc, payload []byte, sigHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestStripeWebhookValidSignatureDispatches(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{}
	handler := StripeWebhook(svc, stubSigningClient{}, guard, nil)

	payload := eventPayload()
	resp := postWebhook(t, handler, payload, signatureHeader(t, payload))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.events) != 1 || svc.events[0] != "evt_1" {
		t.Fatalf("expected event dispatched, got %v", svc.events)
	}
	if len(guard.marked) != 1 {
		t.Fatalf("expected event marked processed, got %v", guard.marked)
	}
}

func TestStripeWebhookInvalidSignatureRejected(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{}
	handler := StripeWebhook(svc, stubSigningClient{}, guard, nil)

	resp := postWebhook(t, handler, eventPayload(), "t=1,v1=deadbeef")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature got %d", resp.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("expected no dispatch for invalid signature")
	}
	if len(guard.marked) != 0 {
		t.Fatal("expected no idempotency state for invalid signature")
	}
}

func TestStripeWebhookMissingSignatureRejected(t *testing.T) {
	handler := StripeWebhook(&stubWebhookService{}, stubSigningClient{}, &stubGuard{}, nil)

	resp := postWebhook(t, handler, eventPayload(), "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature got %d", resp.Code)
	}
}

func TestStripeWebhookReplayShortCircuits(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{seen: map[string]bool{"evt_1": true}}
	handler := StripeWebhook(svc, stubSigningClient{}, guard, nil)

	payload := eventPayload()
	resp := postWebhook(t, handler, payload, signatureHeader(t, payload))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for replay got %d", resp.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("expected replayed event not dispatched")
	}
}

func TestStripeWebhookServiceFailureReleasesMark(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "fulfillment")}
	guard := &stubGuard{}
	handler := StripeWebhook(svc, stubSigningClient{}, guard, nil)

	payload := eventPayload()
	resp := postWebhook(t, handler, payload, signatureHeader(t, payload))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for dependency failure got %d", resp.Code)
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "evt_1" {
		t.Fatalf("expected idempotency mark released, got %v", guard.deleted)
	}
}
