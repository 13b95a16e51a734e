package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 是应用自己的指标；方法都允许nil接收者，没配指标的地方直接传nil
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	QueueMessagesPublished *prometheus.CounterVec
	QueueMessagesConsumed  *prometheus.CounterVec

	LoginFailuresTotal *prometheus.CounterVec
}

// NewMetrics 把指标注册到reg上；测试里每次传一个新的Registry，避免重复注册panic
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_type"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_type"},
		),
		QueueMessagesPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_published_total",
				Help: "Total number of messages published to the queue",
			},
			[]string{"queue_name"},
		),
		QueueMessagesConsumed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_consumed_total",
				Help: "Total number of messages consumed from the queue",
			},
			[]string{"queue_name", "result"},
		),
		LoginFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_failures_total",
				Help: "Total number of rejected login attempts",
			},
			[]string{"reason"}, // credentials, rate_limited
		),
	}
}

func (m *Metrics) CacheHit(keyType string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(keyType).Inc()
}

func (m *Metrics) CacheMiss(keyType string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (m *Metrics) Published(queue string) {
	if m == nil {
		return
	}
	m.QueueMessagesPublished.WithLabelValues(queue).Inc()
}

func (m *Metrics) Consumed(queue, result string) {
	if m == nil {
		return
	}
	m.QueueMessagesConsumed.WithLabelValues(queue, result).Inc()
}

func (m *Metrics) LoginFailed(reason string) {
	if m == nil {
		return
	}
	m.LoginFailuresTotal.WithLabelValues(reason).Inc()
}
