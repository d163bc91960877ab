// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"music-proxy-go/internal/config"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Retry reasons recorded by the upstream client (bounded label values).
const (
	RetryReasonServerError = "server_error"
	RetryReasonTransport   = "transport"
)

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec
	UpstreamRetries   *prometheus.CounterVec

	// routes maps exactly-served paths to their route label, including the
	// configured metrics path when scraping is enabled.
	routes map[string]string
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New(cfg *config.Config) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	routes := make(map[string]string, len(fixedRoutes)+1)
	for path, label := range fixedRoutes {
		routes[path] = label
	}
	if cfg.Metrics.Enabled {
		routes[cfg.Metrics.Path] = "metrics"
	}

	m := &Metrics{
		Registry: reg,
		routes:   routes,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "music_proxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "music_proxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "music_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "music_proxy_upstream_attempt_duration_seconds",
			Help:    "Upstream fetch attempt latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "music_proxy_upstream_responses_total",
			Help: "Total upstream responses by method and status code.",
		}, []string{"method", "status_code"}),

		UpstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "music_proxy_upstream_retries_total",
			Help: "Total retried upstream attempts by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.UpstreamRetries,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// fixedRoutes holds the always-registered endpoints. The metrics endpoint is
// absent here: its path is configurable, so New adds it per config.
var fixedRoutes = map[string]string{
	"/health":  "health",
	"/status":  "status",
	"/palette": "palette",
}

// RouteLabel returns a bounded route label for Prometheus metrics. Apart from
// the fixed paths, every request is proxied and is classified the way the
// router classifies it: by the presence of the `target` query parameter.
func (m *Metrics) RouteLabel(path string, query url.Values) string {
	if route, ok := m.routes[path]; ok {
		return route
	}
	if query.Has("target") {
		return "audio"
	}
	return "api"
}
