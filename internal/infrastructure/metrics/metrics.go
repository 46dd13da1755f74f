// Package metrics exposes business and HTTP counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
)

const namespace = "expenses"

// Metrics owns a private registry so tests and multiple containers never collide
type Metrics struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	notifications      *prometheus.CounterVec
	redemptions        *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Expense workflow transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		transitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Latency of expense workflow transitions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by channel and status.",
		}, []string{"channel", "status"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_redemptions_total",
			Help:      "Invite link redemptions by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.transitionDuration,
		m.notifications,
		m.redemptions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

var _ port.Metrics = (*Metrics)(nil)

// ObserveTransition records one workflow transition attempt
func (m *Metrics) ObserveTransition(action, outcome string, duration time.Duration) {
	m.transitions.WithLabelValues(action, outcome).Inc()
	m.transitionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// NotificationDelivered records one delivery attempt
func (m *Metrics) NotificationDelivered(channel, status string) {
	m.notifications.WithLabelValues(channel, status).Inc()
}

// InviteRedeemed records one redemption attempt
func (m *Metrics) InviteRedeemed(outcome string) {
	m.redemptions.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request; route is the matched pattern, not the raw path
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
