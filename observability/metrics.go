// Package observability bundles the Prometheus metrics of the design client and server.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Collector holds the metrics for calls to the design backend and for requests served by
// the design server. A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	RemoteRequests  *prometheus.CounterVec
	RemoteDurations *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDurations   *prometheus.HistogramVec
}

// NewCollector registers the metrics against reg, defaulting to the global Prometheus
// registry when nil. Registering twice against the same registry reuses the existing metrics.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	remoteRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netdesign_remote_requests_total",
		Help: "Calls made to the design backend, labeled by operation and outcome.",
	}, []string{"operation", "outcome"}), "netdesign_remote_requests_total")
	if err != nil {
		return nil, err
	}

	remoteDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netdesign_remote_request_duration_seconds",
		Help:    "Latency of calls to the design backend in seconds.",
		Buckets: latencyBuckets,
	}, []string{"operation"}), "netdesign_remote_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netdesign_http_requests_total",
		Help: "Requests handled by the design server, labeled by method, route and status.",
	}, []string{"method", "route", "status"}), "netdesign_http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netdesign_http_request_duration_seconds",
		Help:    "Design server request latency in seconds.",
		Buckets: latencyBuckets,
	}, []string{"method", "route"}), "netdesign_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		RemoteRequests:  remoteRequests,
		RemoteDurations: remoteDurations,
		HTTPRequests:    httpRequests,
		HTTPDurations:   httpDurations,
	}, nil
}

// ObserveRemote records one backend call.
func (c *Collector) ObserveRemote(operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.RemoteRequests.WithLabelValues(operation, outcome).Inc()
	c.RemoteDurations.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, fmt.Errorf("registering %s : %w", name, err)
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, fmt.Errorf("registering %s : %w", name, err)
	}
	return vec, nil
}
