package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homease/homease-backend/internal/analytics"
	"github.com/homease/homease-backend/internal/assessments"
	"github.com/homease/homease-backend/internal/leads"
	"github.com/homease/homease-backend/internal/roles"
	"github.com/homease/homease-backend/pkg/bigquery"
	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/pubsub"
	"github.com/homease/homease-backend/pkg/redis"
	"github.com/homease/homease-backend/pkg/storage/gcs"
)

const defaultMetricsPort = "9090"

type ServiceParams struct {
	Config             *config.Config
	Logger             *logger.Logger
	DB                 *db.Client
	Redis              *redis.Client
	PubSub             *pubsub.Client
	GCS                *gcs.Client
	BigQuery           *bigquery.Client
	Registry           *prometheus.Registry
	LeadConsumer       *leads.Consumer
	RoleConsumer       *roles.Consumer
	AssessmentConsumer *assessments.Consumer
	AnalyticsConsumer  *analytics.Consumer
}

// Service runs the four engine consumers plus the metrics endpoint until the
// context is canceled or a consumer fails.
type Service struct {
	cfg                *config.Config
	logg               *logger.Logger
	db                 *db.Client
	redis              *redis.Client
	pubsub             *pubsub.Client
	gcs                *gcs.Client
	bigquery           *bigquery.Client
	registry           *prometheus.Registry
	leadConsumer       *leads.Consumer
	roleConsumer       *roles.Consumer
	assessmentConsumer *assessments.Consumer
	analyticsConsumer  *analytics.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.GCS == nil {
		return nil, errors.New("gcs client is required")
	}
	if params.BigQuery == nil {
		return nil, errors.New("bigquery client is required")
	}
	if params.LeadConsumer == nil {
		return nil, errors.New("lead consumer is required")
	}
	if params.RoleConsumer == nil {
		return nil, errors.New("role consumer is required")
	}
	if params.AssessmentConsumer == nil {
		return nil, errors.New("assessment consumer is required")
	}
	if params.AnalyticsConsumer == nil {
		return nil, errors.New("analytics consumer is required")
	}

	return &Service{
		cfg:                params.Config,
		logg:               params.Logger,
		db:                 params.DB,
		redis:              params.Redis,
		pubsub:             params.PubSub,
		gcs:                params.GCS,
		bigquery:           params.BigQuery,
		registry:           params.Registry,
		leadConsumer:       params.LeadConsumer,
		roleConsumer:       params.RoleConsumer,
		assessmentConsumer: params.AssessmentConsumer,
		analyticsConsumer:  params.AnalyticsConsumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "gcs", s.gcs.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "bigquery", s.bigquery.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	metricsServer := s.startMetricsServer(ctx)
	defer func() {
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}
	}()

	errCh := make(chan error, 4)
	go func() {
		errCh <- s.leadConsumer.Run(ctx)
	}()
	go func() {
		errCh <- s.roleConsumer.Run(ctx)
	}()
	go func() {
		errCh <- s.assessmentConsumer.Run(ctx)
	}()
	go func() {
		errCh <- s.analyticsConsumer.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
			return err
		}
		return err
	}
}

func (s *Service) startMetricsServer(ctx context.Context) *http.Server {
	if s.registry == nil {
		return nil
	}

	port := os.Getenv("METRICS_PORT")
	if port == "" {
		port = defaultMetricsPort
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	return server
}
