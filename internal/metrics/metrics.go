// Package metrics exposes Prometheus metrics for the site server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the site's metrics and the registry they live in.
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	backendCallsTotal   *prometheus.CounterVec
	backendCallDuration *prometheus.HistogramVec
	cacheLookupsTotal   *prometheus.CounterVec
	maintenanceActive   prometheus.Gauge
	newsletterTotal     *prometheus.CounterVec
	serviceInfo         *prometheus.GaugeVec
}

// New creates a Collector registered on a fresh registry together with the Go and
// process collectors.
func New(serviceName, version string) *Collector {
	ns := strings.ReplaceAll(serviceName, "-", "_")
	c := &Collector{
		namespace: ns,
		registry:  prometheus.NewRegistry(),
	}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ns + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    ns + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	c.backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ns + "_backend_calls_total",
			Help: "Calls made to the studio backend by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
	c.backendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    ns + "_backend_call_duration_seconds",
			Help:    "Studio backend call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	c.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ns + "_cache_lookups_total",
			Help: "Cache lookups by key and result",
		},
		[]string{"key", "result"},
	)
	c.maintenanceActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: ns + "_maintenance_active",
			Help: "1 while the backend reports maintenance mode",
		},
	)
	c.newsletterTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ns + "_newsletter_subscriptions_total",
			Help: "Newsletter subscription attempts by result",
		},
		[]string{"result"},
	)
	c.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: ns + "_service_info",
			Help: "Service information",
		},
		[]string{"version"},
	)

	c.registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.backendCallsTotal,
		c.backendCallDuration,
		c.cacheLookupsTotal,
		c.maintenanceActive,
		c.newsletterTotal,
		c.serviceInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.serviceInfo.WithLabelValues(version).Set(1)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unknown"
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveBackendCall records one call to the studio backend.
func (c *Collector) ObserveBackendCall(endpoint, outcome string, elapsed time.Duration) {
	c.backendCallsTotal.WithLabelValues(endpoint, outcome).Inc()
	c.backendCallDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveCache records a cache hit or miss.
func (c *Collector) ObserveCache(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookupsTotal.WithLabelValues(key, result).Inc()
}

// SetMaintenance mirrors the maintenance switch.
func (c *Collector) SetMaintenance(active bool) {
	if active {
		c.maintenanceActive.Set(1)
		return
	}
	c.maintenanceActive.Set(0)
}

// ObserveSubscription records a newsletter attempt.
func (c *Collector) ObserveSubscription(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	c.newsletterTotal.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
