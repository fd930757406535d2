package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	PaymentsConfirmed prometheus.Counter
	Notifications     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func New(reg *prometheus.Registry) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mercadito",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mercadito",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	confirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mercadito",
		Name:      "payments_confirmed_total",
		Help:      "Payments moved to completed.",
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mercadito",
		Name:      "notifications_total",
		Help:      "Notification dispatch attempts by recipient role and outcome.",
	}, []string{"role", "outcome"})

	reg.MustRegister(requests, latency, confirmed, notifications)
	return &Metrics{
		Requests:          requests,
		LatencyMS:         latency,
		PaymentsConfirmed: confirmed,
		Notifications:     notifications,
		gatherer:          reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records one request count and latency sample per request,
// labelled with the matched route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

// NotificationSent satisfies services.ConfirmationObserver.
func (m *Metrics) NotificationSent(role string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.Notifications.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) PaymentConfirmed() {
	m.PaymentsConfirmed.Inc()
}
