package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/homease/homease-backend/internal/analytics"
	"github.com/homease/homease-backend/internal/assessments"
	"github.com/homease/homease-backend/internal/leads"
	"github.com/homease/homease-backend/internal/roles"
	"github.com/homease/homease-backend/pkg/bigquery"
	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db"
	"github.com/homease/homease-backend/pkg/genai"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/metrics"
	"github.com/homease/homease-backend/pkg/migrate"
	"github.com/homease/homease-backend/pkg/pubsub"
	"github.com/homease/homease-backend/pkg/redis"
	"github.com/homease/homease-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	genaiClient, err := genai.NewClient(ctx, cfg.Gemini, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap genai", err)
		os.Exit(1)
	}

	bigqueryClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bigqueryClient.Close(); err != nil {
			logg.Error(ctx, "error closing bigquery", err)
		}
	}()

	registry := prometheus.NewRegistry()
	consumerMetrics := metrics.NewConsumerMetrics(registry)

	leadRepo := leads.NewRepository(dbClient.DB())
	leadEmitter := leads.NewEmitter(pubsub.NewJSONPublisher(pubsubClient.LeadEventsPublisher()), logg)

	leadService, err := leads.NewService(leads.ServiceParams{
		Repo:    leadRepo,
		Emitter: leadEmitter,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create lead service", err)
		os.Exit(1)
	}
	leadConsumer, err := leads.NewConsumer(leadService, pubsubClient.LeadCreatedSubscription(), logg, consumerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create lead consumer", err)
		os.Exit(1)
	}

	roleEngine, err := roles.NewEngine(roles.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(ctx, "failed to create role engine", err)
		os.Exit(1)
	}
	roleConsumer, err := roles.NewConsumer(roleEngine, pubsubClient.RolePendingSubscription(), logg, consumerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create role consumer", err)
		os.Exit(1)
	}

	pipeline, err := assessments.NewPipeline(assessments.NewRepository(dbClient.DB()), gcsClient, genaiClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create assessment pipeline", err)
		os.Exit(1)
	}
	assessmentConsumer, err := assessments.NewConsumer(pipeline, pubsubClient.AssessmentSubscription(), logg, consumerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create assessment consumer", err)
		os.Exit(1)
	}

	ingestor, err := analytics.NewIngestor(bigqueryClient, cfg.BigQuery.LeadEventsTable, redisClient, cfg.Webhook.IdempotencyTTL, logg)
	if err != nil {
		logg.Error(ctx, "failed to create analytics ingestor", err)
		os.Exit(1)
	}
	analyticsConsumer, err := analytics.NewConsumer(ingestor, pubsubClient.LeadEventsSubscription(), logg, consumerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create analytics consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		Redis:              redisClient,
		PubSub:             pubsubClient,
		GCS:                gcsClient,
		BigQuery:           bigqueryClient,
		Registry:           registry,
		LeadConsumer:       leadConsumer,
		RoleConsumer:       roleConsumer,
		AssessmentConsumer: assessmentConsumer,
		AnalyticsConsumer:  analyticsConsumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shut down gracefully")
}
