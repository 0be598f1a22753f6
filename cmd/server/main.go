package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"passport/internal/notify"
	"passport/internal/passport/handler"
	passportmetrics "passport/internal/passport/metrics"
	"passport/internal/passport/models"
	"passport/internal/passport/service"
	"passport/internal/passport/store/memory"
	pgstore "passport/internal/passport/store/postgres"
	redisstore "passport/internal/passport/store/redis"
	"passport/internal/platform/actortoken"
	"passport/internal/platform/config"
	"passport/internal/platform/httpserver"
	"passport/internal/platform/kafka"
	"passport/internal/platform/logger"
	"passport/internal/platform/metrics"
	"passport/internal/platform/postgres"
	redisclient "passport/internal/platform/redis"
	"passport/pkg/platform/circuit"
	"passport/pkg/platform/httputil"
	"passport/pkg/platform/middleware/auth"
	"passport/pkg/platform/middleware/metadata"
	"passport/pkg/platform/middleware/request"
	"passport/pkg/platform/middleware/requesttime"
)

// infra holds the connections opened at startup so they can be health
// checked and closed on shutdown.
type infra struct {
	db    *sql.DB
	redis *redisclient.Client
	kafka *kgo.Client
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deps infra
	defer deps.close(log)

	store, err := openStore(ctx, cfg.Storage, &deps)
	if err != nil {
		return err
	}
	log.Info("record store ready", "backend", cfg.Storage.Backend)

	sink, err := buildSink(ctx, cfg.Kafka, log, &deps)
	if err != nil {
		return err
	}
	publisher := notify.New(sink,
		notify.WithLogger(log),
		notify.WithMetrics(notify.NewMetrics(prometheus.DefaultRegisterer)),
		notify.WithBreaker(circuit.New("notify")),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := publisher.Close(closeCtx); err != nil {
			log.Warn("notification queue not drained", "pending", publisher.Pending(), "error", err)
		}
	}()

	svc := service.New(store,
		service.WithLogger(log),
		service.WithMetrics(passportmetrics.New(prometheus.DefaultRegisterer)),
		service.WithNotifier(publisher),
		service.WithTracer(otel.Tracer("passport/service")),
		service.WithConfig(workflowConfig(cfg.Workflow)),
	)

	tokens := actortoken.New(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	router := newRouter(svc, tokens, metrics.New(prometheus.DefaultRegisterer), &deps, log)

	srv := httpserver.New(cfg.Server.Addr, router)
	return httpserver.Run(ctx, srv, log, cfg.Server.ShutdownTimeout)
}

func newRouter(svc handler.Service, tokens auth.TokenValidator, httpMetrics *metrics.HTTP, deps *infra, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimiddleware.Recoverer)
	r.Use(httpMetrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireActor(tokens, log))
		handler.New(svc, log).Register(r)
	})
	return r
}

func openStore(ctx context.Context, cfg config.Storage, deps *infra) (service.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		deps.db = db
		store := pgstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return store, nil
	case config.BackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		deps.redis = client
		return redisstore.New(client.Client, redisstore.WithKeyPrefix(cfg.Redis.KeyPrefix)), nil
	default:
		return memory.New(), nil
	}
}

// buildSink always logs transitions and also publishes them to Kafka when
// brokers are configured.
func buildSink(ctx context.Context, cfg config.Kafka, log *slog.Logger, deps *infra) (notify.Sink, error) {
	sinks := notify.Fanout{notify.NewLogSink(log)}
	kcfg := kafka.Config{
		Brokers:           cfg.Brokers,
		ClientID:          cfg.ClientID,
		Topic:             cfg.Topic,
		Partitions:        cfg.Partitions,
		ReplicationFactor: cfg.ReplicationFactor,
		ProduceTimeout:    5 * time.Second,
	}
	client, err := kafka.NewProducer(kcfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return sinks, nil
	}
	deps.kafka = client
	if err := kafka.EnsureTopic(ctx, client, kcfg); err != nil {
		return nil, err
	}
	log.Info("publishing transitions to kafka", "topic", cfg.Topic)
	return append(sinks, notify.NewKafkaSink(client, cfg.Topic)), nil
}

func workflowConfig(w config.Workflow) service.Config {
	return service.Config{
		SuggestedMax: map[models.Section]int{
			models.SectionLoves:     w.SuggestedMaxLoves,
			models.SectionHates:     w.SuggestedMaxHates,
			models.SectionStrengths: w.SuggestedMaxStrengths,
			models.SectionNeeds:     w.SuggestedMaxNeeds,
		},
		CASAttempts:     w.CASAttempts,
		StoreTimeout:    w.StoreTimeout,
		LockTimeout:     w.LockTimeout,
		LoadConcurrency: w.LoadConcurrency,
	}
}

func (d *infra) health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var errs []error
	if d.db != nil {
		errs = append(errs, d.db.PingContext(ctx))
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Health(ctx))
	}
	if d.kafka != nil {
		errs = append(errs, kafka.Health(ctx, d.kafka))
	}
	return errors.Join(errs...)
}

func (d *infra) close(log *slog.Logger) {
	if d.kafka != nil {
		d.kafka.Close()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn("close redis", "error", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Warn("close postgres", "error", err)
		}
	}
}
