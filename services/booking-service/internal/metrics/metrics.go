package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters/histograms for availability and booking flows.
type Metrics struct {
	slotRequests  *prometheus.CounterVec
	slotLatency   *prometheus.HistogramVec
	slotsReturned prometheus.Histogram
	bookings      *prometheus.CounterVec
	scheduleCache *prometheus.CounterVec
	events        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		slotRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "availability",
			Name:      "requests_total",
			Help:      "Slot computations by transport and outcome",
		}, []string{"transport", "outcome"}),
		slotLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "availability",
			Name:      "duration_seconds",
			Help:      "Latency of slot computations including store reads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of slots returned per successful computation",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 48},
		}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "appointments_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		scheduleCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "availability",
			Name:      "schedule_cache_total",
			Help:      "Weekly schedule cache lookups by result",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "consumed_events_total",
			Help:      "Consumed Kafka events by type and outcome",
		}, []string{"event_type", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotRequests, m.slotLatency, m.slotsReturned, m.bookings, m.scheduleCache, m.events)
	return m
}

func (m *Metrics) ObserveSlots(transport, outcome string, elapsed time.Duration, slots int) {
	if m == nil {
		return
	}
	m.slotRequests.WithLabelValues(transport, outcome).Inc()
	m.slotLatency.WithLabelValues(transport).Observe(elapsed.Seconds())
	if outcome == "ok" {
		m.slotsReturned.Observe(float64(slots))
	}
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveScheduleCache(result string) {
	if m == nil {
		return
	}
	m.scheduleCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}
