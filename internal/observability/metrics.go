package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reminder outcome labels.
const (
	OutcomeDelivered      = "delivered"
	OutcomeDeliveryFailed = "delivery_failed"
	OutcomeStoreFailed    = "store_failed"
	OutcomeError          = "error"
)

// ReminderMetrics exposes Prometheus collectors that report reminder activity.
type ReminderMetrics struct {
	attempts      *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batches       *prometheus.CounterVec
	pending       prometheus.Gauge
	gatherer      prometheus.Gatherer
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *ReminderMetrics
)

// DefaultReminderMetrics returns the package-level metrics instance registered
// with the global Prometheus registry. The collectors are created only once to
// avoid duplicate registration panics.
func DefaultReminderMetrics() *ReminderMetrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewReminderMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewReminderMetrics constructs a ReminderMetrics instance using the
// provided registerer. Tests pass a fresh registry. Any registration error
// other than a matching re-registration panics.
func MustNewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasktracker",
			Subsystem: "reminders",
			Name:      "attempts_total",
			Help:      "Reminder delivery attempts by reminder type and outcome.",
		},
		[]string{"reminder_type", "outcome"},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasktracker",
			Subsystem: "reminders",
			Name:      "skipped_total",
			Help:      "Pending reminders skipped because they were already sent.",
		},
		[]string{"reminder_type"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tasktracker",
			Subsystem: "reminders",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one reminder processing batch.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasktracker",
			Subsystem: "reminders",
			Name:      "batches_total",
			Help:      "Reminder processing batches by trigger and status.",
		},
		[]string{"trigger", "status"},
	)
	pending := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tasktracker",
			Subsystem: "reminders",
			Name:      "pending",
			Help:      "Tasks inside the reminder window at the last batch.",
		},
	)

	collectors := []prometheus.Collector{attempts, skipped, batchDuration, batches, pending}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			switch target := collector.(type) {
			case *prometheus.HistogramVec:
				batchDuration = already.ExistingCollector.(*prometheus.HistogramVec)
			case *prometheus.CounterVec:
				switch target { //nolint:exhaustive
				case attempts:
					attempts = already.ExistingCollector.(*prometheus.CounterVec)
				case skipped:
					skipped = already.ExistingCollector.(*prometheus.CounterVec)
				case batches:
					batches = already.ExistingCollector.(*prometheus.CounterVec)
				}
			case prometheus.Gauge:
				pending = already.ExistingCollector.(prometheus.Gauge)
			}
		}
	}

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &ReminderMetrics{
		attempts:      attempts,
		skipped:       skipped,
		batchDuration: batchDuration,
		batches:       batches,
		pending:       pending,
		gatherer:      gatherer,
	}
}

// ObserveAttempt records one delivery attempt outcome.
func (m *ReminderMetrics) ObserveAttempt(reminderType, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(reminderType, outcome).Inc()
}

// ObserveSkipped records a pending reminder that was already sent.
func (m *ReminderMetrics) ObserveSkipped(reminderType string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(reminderType).Inc()
}

// ObserveBatch records batch duration, status and pending count.
func (m *ReminderMetrics) ObserveBatch(trigger, status string, pending int, duration time.Duration) {
	if m == nil {
		return
	}
	if trigger == "" {
		trigger = "unknown"
	}
	if m.batchDuration != nil {
		m.batchDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	}
	if m.batches != nil {
		m.batches.WithLabelValues(trigger, status).Inc()
	}
	if m.pending != nil {
		m.pending.Set(float64(pending))
	}
}

// Handler serves the Prometheus exposition for the registry behind m.
func (m *ReminderMetrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
