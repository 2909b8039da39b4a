package contractors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db/models"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error)
	SetStripeAccount(ctx context.Context, userID uuid.UUID, accountID string) error
	UpdateServiceArea(ctx context.Context, userID uuid.UUID, zips, specialties []string) error
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// OnboardingResponse returns the hosted onboarding handoff.
type OnboardingResponse struct {
	AccountID     string `json:"account_id"`
	OnboardingURL string `json:"onboarding_url"`
}

// ProfileUpdateRequest overwrites the matching coverage data.
type ProfileUpdateRequest struct {
	ServiceAreaZips []string `json:"service_area_zips" validate:"required,min=1,max=100,dive,min=3,max=10"`
	Specialties     []string `json:"specialties" validate:"required,min=1,max=25,dive,required,max=100"`
}

// ServiceParams bundles the dependencies for the contractor service.
type ServiceParams struct {
	Profiles  profileRepository
	Users     userLookup
	Connect   ConnectClient
	StripeCfg config.StripeConfig
	Logger    *logger.Logger
}

// Service owns contractor onboarding and profile maintenance.
type Service struct {
	profiles profileRepository
	users    userLookup
	connect  ConnectClient
	cfg      config.StripeConfig
	logg     *logger.Logger
}

// NewService constructs the contractor service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Profiles == nil {
		return nil, errors.New("contractor profiles repository is required")
	}
	if params.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if params.Connect == nil {
		return nil, errors.New("connect client is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		profiles: params.Profiles,
		users:    params.Users,
		connect:  params.Connect,
		cfg:      params.StripeCfg,
		logg:     params.Logger,
	}, nil
}

// StartOnboarding creates the Connect Express account on first call, stores
// its id, and returns a fresh account link either way. Vetting moves to
// pending_stripe; the account.updated webhook settles the final state.
func (s *Service) StartOnboarding(ctx context.Context, userID uuid.UUID) (*OnboardingResponse, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "contractor profile required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contractor profile")
	}

	accountID := ""
	if profile.StripeAccountID != nil {
		accountID = *profile.StripeAccountID
	}

	if accountID == "" {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}

		account, err := s.connect.CreateAccount(ctx, &stripe.AccountParams{
			Type:  stripe.String(string(stripe.AccountTypeExpress)),
			Email: stripe.String(user.Email),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create connect account")
		}
		accountID = account.ID

		if err := s.profiles.SetStripeAccount(ctx, userID, accountID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist connect account")
		}
	}

	link, err := s.connect.CreateAccountLink(ctx, &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		ReturnURL:  stripe.String(s.cfg.OnboardReturn),
		RefreshURL: stripe.String(s.cfg.OnboardRefresh),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account link")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":           userID.String(),
		"stripe_account_id": accountID,
	})
	s.logg.Info(logCtx, "contractor onboarding link created")

	return &OnboardingResponse{
		AccountID:     accountID,
		OnboardingURL: link.URL,
	}, nil
}

// UpdateProfile overwrites the service area and specialties.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileUpdateRequest) error {
	if _, err := s.profiles.FindByUserID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "contractor profile required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contractor profile")
	}
	if err := s.profiles.UpdateServiceArea(ctx, userID, req.ServiceAreaZips, req.Specialties); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update contractor profile")
	}
	return nil
}
