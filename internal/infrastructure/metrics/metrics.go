package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. All Record methods
// are no-ops on a nil receiver so collaborators can run without metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	recordsCreated  *prometheus.CounterVec
	recordsRedeemed *prometheus.CounterVec
	recordsExpired  *prometheus.CounterVec

	ordersConfirmed prometheus.Counter
	persistFailures *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	tasksDropped    prometheus.Counter
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "printorder_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "printorder_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		recordsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "printorder_records_created_total",
			Help: "Expiring records written, by kind",
		}, []string{"kind"}),
		recordsRedeemed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "printorder_records_redeemed_total",
			Help: "Expiring records taken for single use, by kind",
		}, []string{"kind"}),
		recordsExpired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "printorder_records_expired_total",
			Help: "Expired records removed by reads or sweeps, by kind",
		}, []string{"kind"}),
		ordersConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "printorder_orders_confirmed_total",
			Help: "Orders that reached the back office",
		}),
		persistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "printorder_persist_failures_total",
			Help: "Tolerated persistence failures during order processing, by step",
		}, []string{"step"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "printorder_notifications_total",
			Help: "Outbound mail and SMS deliveries, by channel and result",
		}, []string{"channel", "result"}),
		tasksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "printorder_dispatch_tasks_dropped_total",
			Help: "Background tasks rejected because the dispatch queue was full",
		}),
	}
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) RecordCreated(kind string) {
	if m == nil {
		return
	}
	m.recordsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRedeemed(kind string) {
	if m == nil {
		return
	}
	m.recordsRedeemed.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordExpired(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsExpired.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) RecordOrderConfirmed() {
	if m == nil {
		return
	}
	m.ordersConfirmed.Inc()
}

func (m *Metrics) RecordPersistFailure(step string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(step).Inc()
}

// RecordNotification counts one delivery attempt on channel ("mail", "sms").
func (m *Metrics) RecordNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) RecordTaskDropped() {
	if m == nil {
		return
	}
	m.tasksDropped.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
