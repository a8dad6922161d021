package navstack

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the navigation metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "navstack").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the navigation metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// navMetrics holds the Prometheus metrics for navigation operations.
type navMetrics struct {
	navigations    *prometheus.CounterVec
	redirects      prometheus.Counter
	redirectLoops  prometheus.Counter
	matchFailures  prometheus.Counter
	branchSwitches prometheus.Counter
	popsDelegated  *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance, created on first use.
// Every Navigator in a process shares it; InitMetrics customizes it when
// called before the first Navigator is built.
var (
	globalMetrics   *navMetrics
	globalMetricsMu sync.Mutex
)

// InitMetrics initializes the shared navigation metrics with non-default
// options. Calling it after metrics are already initialized has no effect.
//
// Metrics collected:
//   - navstack_navigations_total: Counter of navigations by operation
//   - navstack_redirects_total: Counter of redirect hops taken
//   - navstack_redirect_loops_total: Counter of navigations stopped at the redirect limit
//   - navstack_match_failures_total: Counter of locations with no matching route
//   - navstack_branch_switches_total: Counter of stateful shell branch switches
//   - navstack_pops_delegated_total: Counter of pops by handling scope
func InitMetrics(opts ...MetricsOption) {
	config := MetricsConfig{
		Namespace: "navstack",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
}

// getMetrics returns the shared metrics, initializing with defaults when
// InitMetrics was never called.
func getMetrics() *navMetrics {
	InitMetrics()
	return globalMetrics
}

func initMetrics(config MetricsConfig) *navMetrics {
	factory := promauto.With(config.Registry)

	return &navMetrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "navigations_total",
			Help:        "Total number of navigation operations",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		redirects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "redirects_total",
			Help:        "Total number of redirect hops taken",
			ConstLabels: config.ConstLabels,
		}),

		redirectLoops: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "redirect_loops_total",
			Help:        "Total number of navigations stopped at the redirect limit",
			ConstLabels: config.ConstLabels,
		}),

		matchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "match_failures_total",
			Help:        "Total number of locations with no matching route",
			ConstLabels: config.ConstLabels,
		}),

		branchSwitches: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "branch_switches_total",
			Help:        "Total number of stateful shell branch switches",
			ConstLabels: config.ConstLabels,
		}),

		popsDelegated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "pops_delegated_total",
			Help:        "Total number of pops by handling scope",
			ConstLabels: config.ConstLabels,
		}, []string{"scope"}),
	}
}
