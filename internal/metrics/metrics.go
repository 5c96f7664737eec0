package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry records SDK metrics. Components receive it by injection instead of
// touching package-level collectors.
type Registry interface {
	// Ad config fetches, labelled by who fetched (coordinator or slot).
	IncrementConfigFetches(caller, outcome string)
	RecordConfigFetchLatency(caller string, duration time.Duration)

	// Coordinator state as a number (0 uninitialized, 1 initializing, 2 initialized).
	SetInitializationState(state int)

	// Ad lifecycle events and failed deliveries to event sinks.
	IncrementAdEvents(eventType string)
	IncrementSinkFailures(eventType string)
}

// PrometheusRegistry implements Registry with collectors registered on a
// caller-supplied prometheus.Registerer.
type PrometheusRegistry struct {
	configFetches      *prometheus.CounterVec
	configFetchLatency *prometheus.HistogramVec
	initState          prometheus.Gauge
	adEvents           *prometheus.CounterVec
	sinkFailures       *prometheus.CounterVec
}

// NewPrometheusRegistry creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusRegistry(reg prometheus.Registerer) (*PrometheusRegistry, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &PrometheusRegistry{
		// total ad config fetches per caller and outcome
		configFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mahimeta_sdk_config_fetches_total",
				Help: "Total ad config fetches",
			},
			[]string{"caller", "outcome"},
		),
		// ad config fetch latency in seconds per caller
		configFetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mahimeta_sdk_config_fetch_duration_seconds",
				Help:    "Histogram of ad config fetch latencies",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"caller"},
		),
		initState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mahimeta_sdk_initialization_state",
				Help: "Coordinator state: 0 uninitialized, 1 initializing, 2 initialized",
			},
		),
		// ad lifecycle callbacks, labelled by type
		adEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mahimeta_sdk_ad_events_total",
				Help: "Total ad lifecycle events",
			},
			[]string{"type"},
		),
		sinkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mahimeta_sdk_event_sink_failures_total",
				Help: "Total ad events that at least one sink failed to deliver",
			},
			[]string{"type"},
		),
	}

	for _, c := range []prometheus.Collector{
		r.configFetches,
		r.configFetchLatency,
		r.initState,
		r.adEvents,
		r.sinkFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRegistry) IncrementConfigFetches(caller, outcome string) {
	r.configFetches.WithLabelValues(caller, outcome).Inc()
}

func (r *PrometheusRegistry) RecordConfigFetchLatency(caller string, duration time.Duration) {
	r.configFetchLatency.WithLabelValues(caller).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) SetInitializationState(state int) {
	r.initState.Set(float64(state))
}

func (r *PrometheusRegistry) IncrementAdEvents(eventType string) {
	r.adEvents.WithLabelValues(eventType).Inc()
}

func (r *PrometheusRegistry) IncrementSinkFailures(eventType string) {
	r.sinkFailures.WithLabelValues(eventType).Inc()
}

// NoOpRegistry implements Registry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementConfigFetches(caller, outcome string)                  {}
func (r *NoOpRegistry) RecordConfigFetchLatency(caller string, duration time.Duration) {}
func (r *NoOpRegistry) SetInitializationState(state int)                               {}
func (r *NoOpRegistry) IncrementAdEvents(eventType string)                             {}
func (r *NoOpRegistry) IncrementSinkFailures(eventType string)                         {}
