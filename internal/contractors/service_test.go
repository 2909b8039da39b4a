package contractors

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db/models"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

type stubProfileRepo struct {
	profile *models.ContractorProfile
	findErr error

	storedAccountID string
	setErr          error
	updatedZips     []string
	updatedTrades   []string
	updateErr       error
}

func (s *stubProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.profile == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

func (s *stubProfileRepo) SetStripeAccount(ctx context.Context, userID uuid.UUID, accountID string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.storedAccountID = accountID
	return nil
}

func (s *stubProfileRepo) UpdateServiceArea(ctx context.Context, userID uuid.UUID, zips, specialties []string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updatedZips = zips
	s.updatedTrades = specialties
	return nil
}

type stubUserLookup struct {
	user *models.User
}

func (s *stubUserLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

type stubConnectClient struct {
	account       *stripe.Account
	accountErr    error
	accountEmail  string
	link          *stripe.AccountLink
	linkErr       error
	linkedAccount string
}

func (s *stubConnectClient) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	if params.Email != nil {
		s.accountEmail = *params.Email
	}
	if s.account != nil {
		return s.account, nil
	}
	return &stripe.Account{ID: "acct_new"}, nil
}

func (s *stubConnectClient) CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	if s.linkErr != nil {
		return nil, s.linkErr
	}
	if params.Account != nil {
		s.linkedAccount = *params.Account
	}
	if s.link != nil {
		return s.link, nil
	}
	return &stripe.AccountLink{URL: "https://connect.stripe.com/setup/x"}, nil
}

func newContractorServiceForTests(profiles *stubProfileRepo, usersRepo *stubUserLookup, connect *stubConnectClient) *Service {
	if profiles == nil {
		profiles = &stubProfileRepo{}
	}
	if usersRepo == nil {
		usersRepo = &stubUserLookup{user: &models.User{ID: uuid.New(), Email: "pro@example.com"}}
	}
	if connect == nil {
		connect = &stubConnectClient{}
	}
	svc, err := NewService(ServiceParams{
		Profiles: profiles,
		Users:    usersRepo,
		Connect:  connect,
		StripeCfg: config.StripeConfig{
			OnboardReturn:  "https://app.example/onboarding/return",
			OnboardRefresh: "https://app.example/onboarding/refresh",
		},
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		panic(err)
	}
	return svc
}

func TestStartOnboardingFirstCallCreatesAccount(t *testing.T) {
	profiles := &stubProfileRepo{profile: &models.ContractorProfile{UserID: uuid.New()}}
	connect := &stubConnectClient{}
	svc := newContractorServiceForTests(profiles, nil, connect)

	resp, err := svc.StartOnboarding(context.Background(), profiles.profile.UserID)
	if err != nil {
		t.Fatalf("StartOnboarding returned error: %v", err)
	}
	if resp.AccountID != "acct_new" {
		t.Fatalf("unexpected account id %q", resp.AccountID)
	}
	if resp.OnboardingURL == "" {
		t.Fatal("expected onboarding url")
	}
	if profiles.storedAccountID != "acct_new" {
		t.Fatal("expected account id persisted")
	}
	if connect.accountEmail != "pro@example.com" {
		t.Fatalf("expected account created with user email, got %q", connect.accountEmail)
	}
}

func TestStartOnboardingReusesExistingAccount(t *testing.T) {
	existing := "acct_existing"
	profiles := &stubProfileRepo{profile: &models.ContractorProfile{
		UserID:          uuid.New(),
		StripeAccountID: &existing,
	}}
	connect := &stubConnectClient{}
	svc := newContractorServiceForTests(profiles, nil, connect)

	resp, err := svc.StartOnboarding(context.Background(), profiles.profile.UserID)
	if err != nil {
		t.Fatalf("StartOnboarding returned error: %v", err)
	}
	if resp.AccountID != existing {
		t.Fatalf("expected existing account reused, got %q", resp.AccountID)
	}
	if profiles.storedAccountID != "" {
		t.Fatal("expected no account write on reuse")
	}
	if connect.linkedAccount != existing {
		t.Fatalf("expected link for existing account, got %q", connect.linkedAccount)
	}
}

func TestStartOnboardingWithoutProfileForbidden(t *testing.T) {
	svc := newContractorServiceForTests(&stubProfileRepo{}, nil, nil)

	if _, err := svc.StartOnboarding(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected forbidden")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}
}

func TestStartOnboardingStripeFailure(t *testing.T) {
	profiles := &stubProfileRepo{profile: &models.ContractorProfile{UserID: uuid.New()}}
	connect := &stubConnectClient{accountErr: errors.New("stripe unavailable")}
	svc := newContractorServiceForTests(profiles, nil, connect)

	if _, err := svc.StartOnboarding(context.Background(), profiles.profile.UserID); err == nil {
		t.Fatal("expected dependency error")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestUpdateProfileOverwritesCoverage(t *testing.T) {
	profiles := &stubProfileRepo{profile: &models.ContractorProfile{UserID: uuid.New()}}
	svc := newContractorServiceForTests(profiles, nil, nil)

	err := svc.UpdateProfile(context.Background(), profiles.profile.UserID, ProfileUpdateRequest{
		ServiceAreaZips: []string{"73301", "73344"},
		Specialties:     []string{"plumbing"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if len(profiles.updatedZips) != 2 || len(profiles.updatedTrades) != 1 {
		t.Fatalf("unexpected coverage write zips=%v trades=%v", profiles.updatedZips, profiles.updatedTrades)
	}
}

func TestUpdateProfileWithoutProfileForbidden(t *testing.T) {
	svc := newContractorServiceForTests(&stubProfileRepo{}, nil, nil)

	if err := svc.UpdateProfile(context.Background(), uuid.New(), ProfileUpdateRequest{
		ServiceAreaZips: []string{"73301"},
		Specialties:     []string{"plumbing"},
	}); err == nil {
		t.Fatal("expected forbidden")
	}
}
