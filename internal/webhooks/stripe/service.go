package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/internal/transactions"
	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

type contractorRepository interface {
	FindByStripeAccountID(ctx context.Context, accountID string) (*models.ContractorProfile, error)
	UpdateVettingStatus(ctx context.Context, userID uuid.UUID, status enums.VettingStatus) error
}

type fulfillment interface {
	Grant(ctx context.Context, params transactions.GrantParams) error
}

// ServiceParams bundles the dependencies for the webhook service.
type ServiceParams struct {
	Contractors contractorRepository
	Fulfillment fulfillment
	Logger      *logger.Logger
}

// Service dispatches verified Stripe events to domain handlers. Unrecognized
// event types are logged and acknowledged.
type Service struct {
	contractors contractorRepository
	fulfillment fulfillment
	logg        *logger.Logger
}

// NewService constructs the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Contractors == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "contractor repository required")
	}
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		contractors: params.Contractors,
		fulfillment: params.Fulfillment,
		logg:        params.Logger,
	}, nil
}

// HandleEvent routes the event by type.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode account event")
		}
		return s.syncAccount(ctx, &account)
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout event")
		}
		return s.fulfillCheckout(ctx, &session)
	default:
		s.logg.Info(s.logg.WithField(ctx, "event_type", string(event.Type)),
			"unhandled stripe event type")
		return nil
	}
}

// syncAccount mirrors the connected account's charge capability onto the
// contractor's vetting status.
func (s *Service) syncAccount(ctx context.Context, account *stripe.Account) error {
	if account == nil || account.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}

	profile, err := s.contractors.FindByStripeAccountID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "stripe_account_id", account.ID),
				"no contractor for connected account")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup contractor")
	}

	status := enums.VettingStatusActionRequired
	if account.ChargesEnabled {
		status = enums.VettingStatusApproved
	}

	if err := s.contractors.UpdateVettingStatus(ctx, profile.UserID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vetting status")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":           profile.UserID.String(),
		"stripe_account_id": account.ID,
		"vetting_status":    status.String(),
	})
	s.logg.Info(logCtx, "contractor vetting status synced")
	return nil
}

// fulfillCheckout grants lead access for a completed checkout session.
func (s *Service) fulfillCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	leadID, err := metadataUUID(session.Metadata, "leadId")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout metadata")
	}
	contractorID, err := metadataUUID(session.Metadata, "contractorId")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout metadata")
	}

	var paymentIntentID *string
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		id := session.PaymentIntent.ID
		paymentIntentID = &id
	}

	params := transactions.GrantParams{
		SessionID:       session.ID,
		LeadID:          leadID,
		ContractorID:    contractorID,
		AmountCents:     session.AmountTotal,
		Currency:        string(session.Currency),
		PaymentIntentID: paymentIntentID,
	}
	if err := s.fulfillment.Grant(ctx, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfill checkout")
	}
	return nil
}

func metadataUUID(metadata map[string]string, key string) (uuid.UUID, error) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}
