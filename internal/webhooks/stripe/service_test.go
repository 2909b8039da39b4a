package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/internal/transactions"
	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

type stubContractorRepo struct {
	profile   *models.ContractorProfile
	findErr   error
	updated   enums.VettingStatus
	updateErr error
}

func (s *stubContractorRepo) FindByStripeAccountID(ctx context.Context, accountID string) (*models.ContractorProfile, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.profile == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

func (s *stubContractorRepo) UpdateVettingStatus(ctx context.Context, userID uuid.UUID, status enums.VettingStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = status
	return nil
}

type stubFulfillment struct {
	params *transactions.GrantParams
	err    error
}

func (s *stubFulfillment) Grant(ctx context.Context, params transactions.GrantParams) error {
	if s.err != nil {
		return s.err
	}
	s.params = &params
	return nil
}

func newWebhookServiceForTests(contractors *stubContractorRepo, fulfillment *stubFulfillment) *Service {
	if contractors == nil {
		contractors = &stubContractorRepo{}
	}
	if fulfillment == nil {
		fulfillment = &stubFulfillment{}
	}
	svc, err := NewService(ServiceParams{
		Contractors: contractors,
		Fulfillment: fulfillment,
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		panic(err)
	}
	return svc
}

func accountEvent(raw string) *stripe.Event {
	return &stripe.Event{
		Type: stripe.EventTypeAccountUpdated,
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func checkoutEvent(raw string) *stripe.Event {
	return &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestHandleEventAccountChargesEnabledApproves(t *testing.T) {
	repo := &stubContractorRepo{profile: &models.ContractorProfile{UserID: uuid.New()}}
	svc := newWebhookServiceForTests(repo, nil)

	err := svc.HandleEvent(context.Background(), accountEvent(`{"id": "acct_1", "charges_enabled": true}`))
	if err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if repo.updated != enums.VettingStatusApproved {
		t.Fatalf("expected approved, got %s", repo.updated)
	}
}

func TestHandleEventAccountChargesDisabledRequiresAction(t *testing.T) {
	repo := &stubContractorRepo{profile: &models.ContractorProfile{UserID: uuid.New()}}
	svc := newWebhookServiceForTests(repo, nil)

	err := svc.HandleEvent(context.Background(), accountEvent(`{"id": "acct_1", "charges_enabled": false}`))
	if err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if repo.updated != enums.VettingStatusActionRequired {
		t.Fatalf("expected action_required, got %s", repo.updated)
	}
}

func TestHandleEventUnknownConnectedAccountIsAcked(t *testing.T) {
	repo := &stubContractorRepo{}
	svc := newWebhookServiceForTests(repo, nil)

	if err := svc.HandleEvent(context.Background(), accountEvent(`{"id": "acct_unknown"}`)); err != nil {
		t.Fatalf("expected unknown account to be swallowed, got %v", err)
	}
}

func TestHandleEventCheckoutCompleted(t *testing.T) {
	leadID := uuid.New()
	contractorID := uuid.New()
	fulfillment := &stubFulfillment{}
	svc := newWebhookServiceForTests(nil, fulfillment)

	raw := fmt.Sprintf(`{
		"id": "cs_test_1",
		"amount_total": 2500,
		"currency": "usd",
		"payment_intent": {"id": "pi_1"},
		"metadata": {"leadId": %q, "contractorId": %q}
	}`, leadID, contractorID)

	if err := svc.HandleEvent(context.Background(), checkoutEvent(raw)); err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if fulfillment.params == nil {
		t.Fatal("expected fulfillment invoked")
	}
	if fulfillment.params.SessionID != "cs_test_1" {
		t.Fatalf("unexpected session id %q", fulfillment.params.SessionID)
	}
	if fulfillment.params.LeadID != leadID || fulfillment.params.ContractorID != contractorID {
		t.Fatalf("unexpected grant params %+v", fulfillment.params)
	}
	if fulfillment.params.PaymentIntentID == nil || *fulfillment.params.PaymentIntentID != "pi_1" {
		t.Fatal("expected payment intent id carried through")
	}
}

func TestHandleEventCheckoutMissingMetadata(t *testing.T) {
	fulfillment := &stubFulfillment{}
	svc := newWebhookServiceForTests(nil, fulfillment)

	err := svc.HandleEvent(context.Background(), checkoutEvent(`{"id": "cs_test_1", "metadata": {}}`))
	if err == nil {
		t.Fatal("expected validation error")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	if fulfillment.params != nil {
		t.Fatal("expected fulfillment not invoked")
	}
}

func TestHandleEventCheckoutFulfillmentFailure(t *testing.T) {
	leadID := uuid.New()
	contractorID := uuid.New()
	fulfillment := &stubFulfillment{err: errors.New("db down")}
	svc := newWebhookServiceForTests(nil, fulfillment)

	raw := fmt.Sprintf(`{"id": "cs_test_1", "metadata": {"leadId": %q, "contractorId": %q}}`, leadID, contractorID)
	if err := svc.HandleEvent(context.Background(), checkoutEvent(raw)); err == nil {
		t.Fatal("expected dependency error")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestHandleEventUnknownTypeIsAcked(t *testing.T) {
	svc := newWebhookServiceForTests(nil, nil)

	event := &stripe.Event{
		Type: stripe.EventType("invoice.paid"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected unknown event type acknowledged, got %v", err)
	}
}

func TestHandleEventNilData(t *testing.T) {
	svc := newWebhookServiceForTests(nil, nil)

	if err := svc.HandleEvent(context.Background(), &stripe.Event{Type: stripe.EventTypeAccountUpdated}); err == nil {
		t.Fatal("expected validation error")
	}
}
