package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homease/homease-backend/api/controllers"
	webhookcontrollers "github.com/homease/homease-backend/api/controllers/webhooks"
	"github.com/homease/homease-backend/api/middleware"
	"github.com/homease/homease-backend/internal/assessments"
	"github.com/homease/homease-backend/internal/auth"
	"github.com/homease/homease-backend/internal/contractors"
	"github.com/homease/homease-backend/internal/leads"
	"github.com/homease/homease-backend/internal/roles"
	stripewebhook "github.com/homease/homease-backend/internal/webhooks/stripe"
	"github.com/homease/homease-backend/pkg/auth/session"
	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/enums"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/redis"
	"github.com/homease/homease-backend/pkg/stripe"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Session     session.AccessSessionChecker

	AuthService        auth.Service
	LeadService        *leads.Service
	PurchaseService    *leads.PurchaseService
	ContractorService  *contractors.Service
	AssessmentService  *assessments.Service
	RoleEngine         *roles.Engine
	StripeClient       *stripe.Client
	StripeWebhookSvc   *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard

	// Readiness probes keyed by dependency name.
	Pingers map[string]controllers.Pinger
}

// NewRouter assembles the chi router with the middleware chain and route table.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.StripeWebhookSvc, d.StripeClient, d.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, d.RedisClient, logg)).Post("/register", controllers.AuthRegister(d.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.RedisClient, logg)).Post("/login", controllers.AuthLogin(d.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Session, logg))

		r.Route("/leads", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.RoleHomeowner.String(), logg)).
				Post("/", controllers.LeadCreate(d.LeadService, logg))
			r.Get("/", controllers.LeadList(d.LeadService, logg))
			r.Get("/{leadId}", controllers.LeadDetail(d.LeadService, logg))
			r.With(middleware.RequireRole(enums.RoleContractor.String(), logg)).
				Post("/{leadId}/purchase", controllers.LeadPurchase(d.PurchaseService, logg))
		})

		r.Route("/contractor", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleContractor.String(), logg))
			r.Post("/onboarding", controllers.ContractorOnboarding(d.ContractorService, logg))
			r.Put("/profile", controllers.ContractorProfileUpdate(d.ContractorService, logg))
		})

		r.Route("/assessments", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.RoleHomeowner.String(), logg)).
				Post("/", controllers.AssessmentCreate(d.AssessmentService, logg))
			r.Get("/", controllers.AssessmentList(d.AssessmentService, logg))
			r.Get("/{assessmentId}", controllers.AssessmentDetail(d.AssessmentService, logg))
			r.Post("/{assessmentId}/process", controllers.AssessmentProcess(d.AssessmentService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Session, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))
		r.Post("/users/{userId}/role", controllers.AdminUserRoleOverride(d.RoleEngine, logg))
	})

	return r
}
