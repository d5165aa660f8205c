package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	outcomes *prometheus.CounterVec
	batches  prometheus.Histogram
	triggers *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "processed_total",
			Help:      "Reminder outcomes by status and skip reason",
		}, []string{"status", "reason"}),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one reminder batch",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "triggers_total",
			Help:      "Batch runs by trigger source and result",
		}, []string{"source", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomes, m.batches, m.triggers)
	return m
}

func (m *Metrics) ObserveOutcome(status, reason string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status, reason).Inc()
}

func (m *Metrics) ObserveBatch(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTrigger(source, result string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(source, result).Inc()
}
