package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "harmonycn").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "harmonycn",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors.
type Metrics struct {
	registryFetches *prometheus.CounterVec
	hostRequests    *prometheus.CounterVec
	hostDuration    *prometheus.HistogramVec
	devicePolls     *prometheus.CounterVec
	publishes       *prometheus.CounterVec
	changedFiles    prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	subscribers     prometheus.Gauge
}

// NewMetrics registers the collectors against the configured registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registryFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registry_fetches_total",
			Help:        "Registry documents fetched, by document kind and result",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "result"}),

		hostRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "git_host_requests_total",
			Help:        "Git hosting API requests, by operation and status class",
			ConstLabels: config.ConstLabels,
		}, []string{"operation", "status"}),

		hostDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "git_host_request_duration_seconds",
			Help:        "Git hosting API request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"operation"}),

		devicePolls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "device_auth_polls_total",
			Help:        "Device authorization token polls, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "publishes_total",
			Help:        "Publish pipeline runs, by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		changedFiles: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "changed_files_total",
			Help:        "Component files found to differ from the registry",
			ConstLabels: config.ConstLabels,
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Update server requests, by method, route and status class",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "Update server request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_subscribers",
			Help:        "Connected publish event subscribers",
			ConstLabels: config.ConstLabels,
		}),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide collectors registered on the default
// Prometheus registerer.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// RecordRegistryFetch counts one registry document fetch.
func (m *Metrics) RecordRegistryFetch(kind string, err error) {
	if m == nil {
		return
	}
	m.registryFetches.WithLabelValues(kind, result(err)).Inc()
}

// RecordHostRequest counts one Git hosting API call.
func (m *Metrics) RecordHostRequest(operation string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.hostRequests.WithLabelValues(operation, statusClass(statusCode)).Inc()
	m.hostDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordDevicePoll counts one token poll by its outcome.
func (m *Metrics) RecordDevicePoll(outcome string) {
	if m == nil {
		return
	}
	m.devicePolls.WithLabelValues(outcome).Inc()
}

// RecordPublish counts one publish pipeline run.
func (m *Metrics) RecordPublish(err error) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(result(err)).Inc()
}

// RecordChangedFiles adds n to the changed file counter.
func (m *Metrics) RecordChangedFiles(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.changedFiles.Add(float64(n))
}

// RecordHTTPRequest counts one update server request. route is the
// matched route pattern, not the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(statusCode)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SetEventSubscribers reports the number of connected event subscribers.
func (m *Metrics) SetEventSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// statusClass keeps label cardinality low ("2xx", "4xx", "error").
func statusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
