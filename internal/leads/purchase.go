package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
	pkgstripe "github.com/homease/homease-backend/pkg/stripe"
)

// CheckoutClient exposes the subset of Stripe operations required to sell a lead.
type CheckoutClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type checkoutClientWrapper struct{}

// NewCheckoutClient wraps the configured Stripe client so the purchase flow can be tested.
func NewCheckoutClient(api *pkgstripe.Client) CheckoutClient {
	if api == nil {
		return nil
	}
	return &checkoutClientWrapper{}
}

func (w *checkoutClientWrapper) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return checkoutsession.New(params)
}

type contractorProfiles interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error)
}

// PurchaseServiceParams bundles the dependencies for the purchase flow.
type PurchaseServiceParams struct {
	Repo      repository
	Profiles  contractorProfiles
	Checkout  CheckoutClient
	StripeCfg config.StripeConfig
	Logger    *logger.Logger
}

// PurchaseService creates hosted checkout sessions for matched contractors.
// Fulfillment happens later, driven by the checkout.session.completed webhook.
type PurchaseService struct {
	repo     repository
	profiles contractorProfiles
	checkout CheckoutClient
	cfg      config.StripeConfig
	logg     *logger.Logger
}

// NewPurchaseService constructs the purchase service.
func NewPurchaseService(params PurchaseServiceParams) (*PurchaseService, error) {
	if params.Repo == nil {
		return nil, errors.New("leads repository is required")
	}
	if params.Profiles == nil {
		return nil, errors.New("contractor profiles repository is required")
	}
	if params.Checkout == nil {
		return nil, errors.New("checkout client is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &PurchaseService{
		repo:     params.Repo,
		profiles: params.Profiles,
		checkout: params.Checkout,
		cfg:      params.StripeCfg,
		logg:     params.Logger,
	}, nil
}

// Purchase validates eligibility and returns a checkout session for the lead.
func (s *PurchaseService) Purchase(ctx context.Context, contractorID, leadID uuid.UUID) (*PurchaseResponse, error) {
	lead, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load lead")
	}

	if !lead.MatchedContractorIDs.Contains(contractorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	if lead.PurchasedBy.Contains(contractorID) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "lead already purchased")
	}
	switch lead.Status {
	case enums.LeadStatusMatched, enums.LeadStatusSold:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lead is not available for purchase")
	}

	profile, err := s.profiles.FindByUserID(ctx, contractorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "contractor profile required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contractor profile")
	}
	if profile.VettingStatus != enums.VettingStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "contractor is not approved")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.CheckoutSuccess),
		CancelURL:  stripe.String(s.cfg.CheckoutCancel),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(lead.Currency)),
					UnitAmount: stripe.Int64(lead.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Home service lead (%s)", lead.Zip)),
					},
				},
			},
		},
	}
	params.AddMetadata("leadId", lead.ID.String())
	params.AddMetadata("contractorId", contractorID.String())

	session, err := s.checkout.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	logCtx := s.logg.WithLeadID(ctx, lead.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"contractor_id": contractorID.String(),
		"session_id":    session.ID,
	})
	s.logg.Info(logCtx, "checkout session created")

	return &PurchaseResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}
