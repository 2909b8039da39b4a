package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/internal/leads"
	pkgAuth "github.com/homease/homease-backend/pkg/auth"
	"github.com/homease/homease-backend/pkg/auth/session"
	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	"github.com/homease/homease-backend/pkg/logger"
)

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubLeadsRepo struct{}

func (stubLeadsRepo) Create(ctx context.Context, lead *models.Lead) error {
	return nil
}

func (stubLeadsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	return nil, gorm.ErrRecordNotFound
}

func (stubLeadsRepo) ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Lead, error) {
	return nil, nil
}

func (stubLeadsRepo) ListForContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Lead, error) {
	return nil, nil
}

func (stubLeadsRepo) SetMatching(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubLeadsRepo) SetMatched(ctx context.Context, id uuid.UUID, contractorIDs []uuid.UUID) error {
	return nil
}

func (stubLeadsRepo) SetNoMatch(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubLeadsRepo) SetFailed(ctx context.Context, id uuid.UUID, message string) error {
	return nil
}

func (stubLeadsRepo) ApprovedCandidatesByZip(ctx context.Context, zip string) ([]leads.Candidate, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "homease",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	leadService, err := leads.NewService(leads.ServiceParams{
		Repo:   stubLeadsRepo{},
		Logger: logg,
	})
	if err != nil {
		t.Fatalf("build lead service: %v", err)
	}

	return NewRouter(Deps{
		Config:      cfg,
		Logger:      logg,
		Session:     stubSessionChecker{},
		LeadService: leadService,
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleHomeowner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for lead list got %d", resp.Code)
	}
}

func TestLeadCreateRequiresHomeownerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleContractor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for contractor lead create got %d", resp.Code)
	}
}

func TestLeadPurchaseRequiresContractorRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads/"+uuid.NewString()+"/purchase", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleHomeowner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for homeowner purchase got %d", resp.Code)
	}
}

func TestContractorGroupRequiresContractorRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contractor/onboarding", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleHomeowner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for homeowner onboarding got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/users/"+uuid.NewString()+"/role", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleContractor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin override got %d", resp.Code)
	}

	missing := httptest.NewRequest(http.MethodPost, "/api/admin/v1/users/"+uuid.NewString()+"/role", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}
