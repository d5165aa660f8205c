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
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/reminders"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/whatsapp"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.Load(); err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	service := config.String("SERVICE_NAME", "reminder-service")
	logger := runtime.NewLogger(service)
	if err := run(service, logger); err != nil {
		logger.Error("reminder-service exited", "err", err)
		os.Exit(1)
	}
}

func run(service string, logger *slog.Logger) error {
	port, err := config.Port("PORT", "8087")
	if err != nil {
		return err
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	fallbackZone, err := clock.LoadZone(config.String("DEFAULT_TIMEZONE", ""))
	if err != nil {
		return err
	}
	renderer, err := whatsapp.NewRenderer(config.String("REMINDER_TEMPLATE", ""))
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	outboxRepo := outbox.NewRepository()
	var writer outbox.MessageWriter
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		writer = kafkax.NewWriter(brokers)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	go outbox.NewPublisher(pool, outboxRepo, writer, logger, outbox.PublisherConfig{
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	}).Run(ctx)

	var sender whatsapp.Sender
	if url := config.String("EVOLUTION_API_URL", ""); url != "" {
		sender = whatsapp.NewEvolutionSender(url, config.String("EVOLUTION_API_KEY", ""), config.String("EVOLUTION_INSTANCE", ""))
	} else {
		logger.Warn("EVOLUTION_API_URL not set; reminders are logged, not sent")
		sender = whatsapp.NewNoopSender(logger)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	processor := reminders.NewProcessor(storage.New(pool, outboxRepo), sender, renderer, clock.System{}, m, logger, reminders.Config{
		SendTimeout: config.Duration("REMINDER_SEND_TIMEOUT", 10*time.Second),
		ClaimLease:  config.Duration("REMINDER_CLAIM_LEASE", 5*time.Minute),
		Fallback:    fallbackZone,
	})
	worker := reminders.NewWorker(processor, m, logger, config.Duration("REMINDER_INTERVAL", 5*time.Minute))
	if config.Bool("REMINDER_WORKER_ENABLED", true) {
		go worker.Run(ctx)
	}

	router := chi.NewRouter()
	runtime.MountProbes(router, nil, readyChecks...)
	handlers.New(worker, config.String("REMINDER_TRIGGER_TOKEN_HASH", ""), logger).Routes(router)

	srv := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(httpx.Chain(router,
			httpx.WithRequestID,
			httpx.WithAccessLog(logger),
			httpx.WithRecover(logger),
			httpx.WithBodyLimit(1<<16),
		), "reminders"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.ServeHTTP(ctx, logger, srv, 10*time.Second)
}
