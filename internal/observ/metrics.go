package observ

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the API exports on /metrics.
//
// Collectors are registered on the registerer passed to NewMetrics so tests
// can use a private prometheus.NewRegistry() instead of the global one.
type Metrics struct {
	RequestCounter           *prometheus.CounterVec
	RequestDurationHistogram *prometheus.HistogramVec
	StatusCategoryCounter    *prometheus.CounterVec

	LoginCounter          *prometheus.CounterVec
	AuthErrorCounter      *prometheus.CounterVec
	BikeOperationCounter  *prometheus.CounterVec
	SaleRevenueCounter    prometheus.Counter
	MaintenanceRejections prometheus.Counter
	RateLimitRejections   *prometheus.CounterVec
	StreamConnections     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDurationHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		StatusCategoryCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_responses_by_category_total",
				Help: "HTTP responses grouped by status class (2xx, 4xx, 5xx)",
			},
			[]string{"category"},
		),
		LoginCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bikers_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		AuthErrorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bikers_auth_errors_total",
				Help: "Rejected requests at the guard chain by error code",
			},
			[]string{"code"},
		),
		BikeOperationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bikers_bike_operations_total",
				Help: "Inventory mutations by operation",
			},
			[]string{"operation"},
		),
		SaleRevenueCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bikers_sale_revenue_total",
				Help: "Sum of sold prices recorded by this process",
			},
		),
		MaintenanceRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bikers_maintenance_rejections_total",
				Help: "Requests rejected while maintenance mode was on",
			},
		),
		RateLimitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bikers_rate_limit_rejections_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		StreamConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bikers_announcement_stream_connections",
				Help: "Open announcement websocket connections",
			},
		),
	}

	reg.MustRegister(
		m.RequestCounter,
		m.RequestDurationHistogram,
		m.StatusCategoryCounter,
		m.LoginCounter,
		m.AuthErrorCounter,
		m.BikeOperationCounter,
		m.SaleRevenueCounter,
		m.MaintenanceRejections,
		m.RateLimitRejections,
		m.StreamConnections,
	)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, seconds float64) {
	m.RequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDurationHistogram.WithLabelValues(method, path).Observe(seconds)
	m.StatusCategoryCounter.WithLabelValues(StatusCategory(status)).Inc()
}

func StatusCategory(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
