package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/homease/homease-backend/api/controllers"
	"github.com/homease/homease-backend/api/routes"
	"github.com/homease/homease-backend/internal/assessments"
	"github.com/homease/homease-backend/internal/auth"
	"github.com/homease/homease-backend/internal/contractors"
	"github.com/homease/homease-backend/internal/leads"
	"github.com/homease/homease-backend/internal/roles"
	"github.com/homease/homease-backend/internal/transactions"
	"github.com/homease/homease-backend/internal/users"
	stripewebhook "github.com/homease/homease-backend/internal/webhooks/stripe"
	"github.com/homease/homease-backend/pkg/auth/session"
	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/migrate"
	"github.com/homease/homease-backend/pkg/pubsub"
	"github.com/homease/homease-backend/pkg/redis"
	"github.com/homease/homease-backend/pkg/storage/gcs"
	"github.com/homease/homease-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer pubsubClient.Close()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	leadRepo := leads.NewRepository(dbClient.DB())
	contractorRepo := contractors.NewRepository(dbClient.DB())
	assessmentRepo := assessments.NewRepository(dbClient.DB())
	roleRepo := roles.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		TxRunner:       dbClient,
		RolePublisher:  pubsub.NewJSONPublisher(pubsubClient.RolePendingPublisher()),
		PasswordCfg:    cfg.Password,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	leadEmitter := leads.NewEmitter(pubsub.NewJSONPublisher(pubsubClient.LeadEventsPublisher()), logg)

	leadService, err := leads.NewService(leads.ServiceParams{
		Repo:      leadRepo,
		Publisher: pubsub.NewJSONPublisher(pubsubClient.LeadCreatedPublisher()),
		Emitter:   leadEmitter,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create lead service", err)
		os.Exit(1)
	}

	purchaseService, err := leads.NewPurchaseService(leads.PurchaseServiceParams{
		Repo:      leadRepo,
		Profiles:  contractorRepo,
		Checkout:  leads.NewCheckoutClient(stripeClient),
		StripeCfg: cfg.Stripe,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create purchase service", err)
		os.Exit(1)
	}

	contractorService, err := contractors.NewService(contractors.ServiceParams{
		Profiles:  contractorRepo,
		Users:     userRepo,
		Connect:   contractors.NewConnectClient(stripeClient),
		StripeCfg: cfg.Stripe,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create contractor service", err)
		os.Exit(1)
	}

	assessmentService, err := assessments.NewService(assessments.ServiceParams{
		Repo:      assessmentRepo,
		Publisher: pubsub.NewJSONPublisher(pubsubClient.AssessmentPublisher()),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create assessment service", err)
		os.Exit(1)
	}

	roleEngine, err := roles.NewEngine(roleRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create role engine", err)
		os.Exit(1)
	}

	fulfillmentService, err := transactions.NewFulfillment(dbClient, leadEmitter, logg)
	if err != nil {
		logg.Error(ctx, "failed to create fulfillment service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Contractors: contractorRepo,
		Fulfillment: fulfillmentService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "stripe")
	if err != nil {
		logg.Error(ctx, "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:             cfg,
		Logger:             logg,
		RedisClient:        redisClient,
		Session:            sessionManager,
		AuthService:        authService,
		LeadService:        leadService,
		PurchaseService:    purchaseService,
		ContractorService:  contractorService,
		AssessmentService:  assessmentService,
		RoleEngine:         roleEngine,
		StripeClient:       stripeClient,
		StripeWebhookSvc:   webhookService,
		StripeWebhookGuard: webhookGuard,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
			"gcs":      gcsClient,
		},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-runCtx.Done():
		logg.Info(startCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}
