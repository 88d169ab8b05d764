// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	MessagesSent    prometheus.Counter
	MentionsIndexed prometheus.Counter
}

// New creates and registers every collector, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopchat",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopchat",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopchat",
			Name:      "messages_sent_total",
			Help:      "Messages stored.",
		}),
		MentionsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopchat",
			Name:      "mentions_indexed_total",
			Help:      "Mention index rows written, one per mentioned user per message.",
		}),
	}

	m.Registry.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.MessagesSent,
		m.MentionsIndexed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveMessage records one stored message and its mentions.
func (m *Metrics) ObserveMessage(mentions int) {
	m.MessagesSent.Inc()
	m.MentionsIndexed.Add(float64(mentions))
}
