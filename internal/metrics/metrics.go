package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "digishop"

// Shop records order lifecycle and background job metrics.
// A nil *Shop is valid and records nothing.
type Shop struct {
	ordersCreated      *prometheus.CounterVec
	ordersCanceled     *prometheus.CounterVec
	deliveries         *prometheus.CounterVec
	paymentsConfirmed  *prometheus.CounterVec
	staleConfirmations prometheus.Counter
	jobDuration        *prometheus.HistogramVec
	jobSuccess         *prometheus.CounterVec
	jobFailure         *prometheus.CounterVec
}

// New registers the shop metrics on the provided registerer.
func New(reg prometheus.Registerer) *Shop {
	if reg == nil {
		return &Shop{}
	}
	s := &Shop{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created by settlement path.",
		}, []string{"path"}),
		ordersCanceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_canceled_total",
			Help:      "Orders canceled by reason.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts by result.",
		}, []string{"result"}),
		paymentsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_confirmed_total",
			Help:      "External payments applied by kind.",
		}, []string{"kind"}),
		staleConfirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_confirmations_total",
			Help:      "Payments confirmed for orders that were already canceled.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of background job ticks in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_success_total",
			Help:      "Successful background job ticks.",
		}, []string{"job"}),
		jobFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failure_total",
			Help:      "Failed background job ticks.",
		}, []string{"job"}),
	}
	reg.MustRegister(
		s.ordersCreated,
		s.ordersCanceled,
		s.deliveries,
		s.paymentsConfirmed,
		s.staleConfirmations,
		s.jobDuration,
		s.jobSuccess,
		s.jobFailure,
	)
	return s
}

func (s *Shop) OrderCreated(path string) {
	if s == nil || s.ordersCreated == nil {
		return
	}
	s.ordersCreated.WithLabelValues(normalizeLabel(path)).Inc()
}

func (s *Shop) OrderCanceled(reason string) {
	if s == nil || s.ordersCanceled == nil {
		return
	}
	s.ordersCanceled.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (s *Shop) Delivery(result string) {
	if s == nil || s.deliveries == nil {
		return
	}
	s.deliveries.WithLabelValues(normalizeLabel(result)).Inc()
}

func (s *Shop) PaymentConfirmed(kind string) {
	if s == nil || s.paymentsConfirmed == nil {
		return
	}
	s.paymentsConfirmed.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (s *Shop) StaleConfirmation() {
	if s == nil || s.staleConfirmations == nil {
		return
	}
	s.staleConfirmations.Inc()
}

// ObserveJob records one tick of the named job.
func (s *Shop) ObserveJob(job string, duration time.Duration, err error) {
	if s == nil || s.jobDuration == nil {
		return
	}
	job = normalizeLabel(job)
	s.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		s.jobFailure.WithLabelValues(job).Inc()
		return
	}
	s.jobSuccess.WithLabelValues(job).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
