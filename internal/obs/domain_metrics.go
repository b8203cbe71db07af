package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutations counts POS cart mutations by operation and outcome.
	CartMutations *prometheus.CounterVec
	// InvoiceSubmissions counts invoice create/update attempts by customer mode and outcome.
	InvoiceSubmissions *prometheus.CounterVec
	// UpstreamRequests counts calls to the back-office backend by operation and outcome.
	UpstreamRequests *prometheus.CounterVec
	// UpstreamLatency records upstream call latency in milliseconds.
	UpstreamLatency *prometheus.HistogramVec
	// GSTLookups counts GSTIN verification outcomes.
	GSTLookups *prometheus.CounterVec
	// ReferenceLoads counts reference data reads by dataset and source (cache or upstream).
	ReferenceLoads *prometheus.CounterVec
	// RateLimited counts requests rejected by a limiter, by scope.
	RateLimited *prometheus.CounterVec
	// EventDeliveries counts domain event hand-offs by topic, sink and result.
	EventDeliveries *prometheus.CounterVec
	// WebhookLatency records outbound webhook attempt latency in milliseconds by result.
	WebhookLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers POS domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_cart_mutations_total",
			Help:      "POS cart mutations by operation and result.",
		}, []string{"op", "result"})
		InvoiceSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_invoice_submissions_total",
			Help:      "Invoice submissions by customer mode, action and result.",
		}, []string{"mode", "action", "result"})
		UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Back-office backend requests by operation and result.",
		}, []string{"operation", "result"})
		UpstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_ms",
			Help:      "Back-office backend latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"})
		GSTLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gst_lookups_total",
			Help:      "GSTIN verification outcomes.",
		}, []string{"result"})
		ReferenceLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_loads_total",
			Help:      "Reference data reads by dataset and source.",
		}, []string{"dataset", "source"})

		RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"scope"})
		EventDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Domain event deliveries by topic, sink and result.",
		}, []string{"topic", "sink", "result"})
		WebhookLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_attempt_duration_ms",
			Help:      "Outbound webhook attempt latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})

		register(reg, &CartMutations)
		register(reg, &InvoiceSubmissions)
		register(reg, &UpstreamRequests)
		register(reg, &UpstreamLatency)
		register(reg, &GSTLookups)
		register(reg, &ReferenceLoads)
		register(reg, &RateLimited)
		register(reg, &EventDeliveries)
		register(reg, &WebhookLatency)
	})
}

// Count increments vec when domain metrics are registered. It lets packages
// record outcomes without caring whether the process enabled metrics.
func Count(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}
