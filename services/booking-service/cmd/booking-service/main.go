package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/slotbook/libs/clock"
	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/inbox"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := config.Load(); err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)
	if err := run(service, logger); err != nil {
		logger.Error("booking-service exited", "err", err)
		os.Exit(1)
	}
}

func run(service string, logger *slog.Logger) error {
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		return err
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		return err
	}
	fallbackZone, err := clock.LoadZone(config.String("DEFAULT_TIMEZONE", ""))
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		return err
	}
	defer pool.Close()

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var (
		rdb         *redis.Client
		scheduleRDB redis.Cmdable
	)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		scheduleRDB = rdb
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	} else {
		logger.Warn("REDIS_ADDR not set; schedule cache and shared rate limiting disabled")
	}

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	repo := storage.New(pool)
	schedules := cache.NewSchedules(scheduleRDB, repo, config.Duration("SCHEDULE_CACHE_TTL", 5*time.Minute), logger, m)
	slots := availability.NewService(repo, schedules, clock.System{}, fallbackZone, logger)
	outboxRepo := outbox.NewRepository()
	bookingSvc := booking.NewService(pool, repo, outboxRepo, slots, m, logger)

	var writer outbox.MessageWriter
	if brokers != "" {
		writer = kafkax.NewWriter(brokers)
	}
	go outbox.NewPublisher(pool, outboxRepo, writer, logger, outbox.PublisherConfig{
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	}).Run(ctx)

	if brokers != "" {
		inboxRepo := inbox.NewRepository()
		group := config.String("KAFKA_GROUP_ID", service)
		entitlements := events.Entitlements(repo, m, logger)
		consumers := map[string]inbox.Handler{
			events.TopicSubscriptionActivated: entitlements,
			events.TopicSubscriptionCanceled:  entitlements,
			events.TopicProfessionalUpdated:   events.ScheduleChanged(schedules, m, logger),
		}
		for topic, handler := range consumers {
			reader := kafkax.NewReader(brokers, group, topic)
			go inbox.NewConsumer(reader, pool, inboxRepo, logger, handler).Run(ctx)
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set; event consumers disabled")
	}

	grpcSrv, health := grpcx.NewServer(logger)
	grpcserver.Register(grpcSrv, slots, m, logger)
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcErr := make(chan error, 1)
	go func() { grpcErr <- grpcx.Serve(ctx, logger, grpcSrv, ":"+grpcPort) }()

	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var publicLimit httpx.Middleware
	if rdb != nil {
		publicLimit = httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "ratelimit:booking:", nil).
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		publicLimit = httpx.NewRateLimiter(limit, time.Minute, nil).Middleware()
	}

	router := chi.NewRouter()
	runtime.MountProbes(router, nil, readyChecks...)
	handlers.New(slots, bookingSvc, m, logger).Routes(router, jwtSecret, publicLimit)

	httpHandler := httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 10*time.Second)),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(httpHandler, "booking"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := runtime.ServeHTTP(ctx, logger, srv, 10*time.Second); err != nil {
		return err
	}
	return <-grpcErr
}
