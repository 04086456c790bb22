// Package metrics records registry activity as Prometheus metrics. Every
// method is safe on a nil *Recorder, so callers never need to check whether
// metrics are enabled.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache operations reported by CacheOp.
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheWrite      = "write"
	CacheInvalidate = "invalidate"
	CacheError      = "error"
)

// Resolve outcomes reported by ObserveResolve.
const (
	OutcomeTheme     = "theme"
	OutcomeExtension = "extension"
	OutcomeCore      = "core"
	OutcomeMiss      = "miss"
)

// Config configures the recorder.
type Config struct {
	// Namespace prefixes every metric name (default "layoutkit").
	Namespace string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the build duration histogram buckets.
	Buckets []float64

	// Registry receives the collectors. Default: a fresh registry.
	Registry *prometheus.Registry
}

// Option configures the recorder.
type Option func(*Config)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the build duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry registers the collectors on registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "layoutkit",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}
}

// Recorder holds the registry collectors.
type Recorder struct {
	registry *prometheus.Registry

	builds        prometheus.Counter
	buildDuration prometheus.Histogram
	resources     *prometheus.GaugeVec
	resolves      *prometheus.CounterVec
	cacheOps      *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	registrations *prometheus.CounterVec
}

// NewRecorder creates and registers the collectors.
func NewRecorder(opts ...Option) *Recorder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(cfg.Registry)

	return &Recorder{
		registry: cfg.Registry,

		builds: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "registry",
			Name:        "builds_total",
			Help:        "Total number of registry index builds",
			ConstLabels: cfg.ConstLabels,
		}),

		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "registry",
			Name:        "build_duration_seconds",
			Help:        "Registry index build duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		resources: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "registry",
			Name:        "resources",
			Help:        "Indexed resources by kind and source after the last build",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "source"}),

		resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "registry",
			Name:        "resolves_total",
			Help:        "Resolve calls by kind and winning tier",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "outcome"}),

		cacheOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "cache",
			Name:        "operations_total",
			Help:        "Registry cache operations by type",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op"}),

		invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "registry",
			Name:        "invalidations_total",
			Help:        "Invalidation events handled",
			ConstLabels: cfg.ConstLabels,
		}, []string{"event"}),

		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "registry",
			Name:        "extension_registrations_total",
			Help:        "Extension registration attempts by result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),
	}
}

// ObserveBuild records a completed build.
func (r *Recorder) ObserveBuild(d time.Duration) {
	if r == nil {
		return
	}
	r.builds.Inc()
	r.buildDuration.Observe(d.Seconds())
}

// SetResources replaces the per-source resource gauges with counts
// (kind -> source -> n).
func (r *Recorder) SetResources(counts map[string]map[string]int) {
	if r == nil {
		return
	}
	r.resources.Reset()
	for kind, sources := range counts {
		for source, n := range sources {
			r.resources.WithLabelValues(kind, source).Set(float64(n))
		}
	}
}

// ObserveResolve records which tier answered a Resolve call.
func (r *Recorder) ObserveResolve(kind, outcome string) {
	if r == nil {
		return
	}
	r.resolves.WithLabelValues(kind, outcome).Inc()
}

// CacheOp records a cache operation.
func (r *Recorder) CacheOp(op string) {
	if r == nil {
		return
	}
	r.cacheOps.WithLabelValues(op).Inc()
}

// Invalidation records a handled invalidation event.
func (r *Recorder) Invalidation(event string) {
	if r == nil {
		return
	}
	r.invalidations.WithLabelValues(event).Inc()
}

// ExtensionRegistration records a registration attempt.
func (r *Recorder) ExtensionRegistration(accepted bool) {
	if r == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	r.registrations.WithLabelValues(result).Inc()
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// WriteTextfile writes every metric in the text exposition format to path,
// atomically, for node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
