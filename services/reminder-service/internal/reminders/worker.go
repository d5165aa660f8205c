package reminders

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/metrics"
)

var ErrBatchRunning = errors.New("a reminder batch is already running")

// Worker runs the processor on a ticker and serialises manual triggers with
// the periodic runs of this process.
type Worker struct {
	processor *Processor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	mu        sync.Mutex
}

func NewWorker(processor *Processor, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Worker{processor: processor, metrics: m, logger: logger, interval: interval}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx, "worker"); err != nil && !errors.Is(err, ErrBatchRunning) {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

// RunOnce runs one batch unless another is in progress in this process.
func (w *Worker) RunOnce(ctx context.Context, source string) (Report, error) {
	if !w.mu.TryLock() {
		w.metrics.ObserveTrigger(source, "busy")
		return Report{}, ErrBatchRunning
	}
	defer w.mu.Unlock()

	report, err := w.processor.Run(ctx)
	if err != nil {
		w.metrics.ObserveTrigger(source, "error")
		return Report{}, err
	}
	w.metrics.ObserveTrigger(source, "ok")

	counts := map[string]int{}
	for _, out := range report.Processed {
		counts[out.Status]++
	}
	w.logger.Info("reminder batch finished",
		"source", source,
		"candidates", len(report.Processed),
		"sent", counts[StatusSent],
		"failed", counts[StatusFailed],
		"skipped", counts[StatusSkipped],
	)
	return report, nil
}
