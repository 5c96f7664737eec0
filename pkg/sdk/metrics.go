package sdk

import (
	"context"
	"errors"
	"time"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adconfig"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/events"
)

// Metrics receives SDK measurements.
type Metrics interface {
	IncrementConfigFetches(caller, outcome string)
	RecordConfigFetchLatency(caller string, duration time.Duration)
	SetInitializationState(state int)
	IncrementAdEvents(eventType string)
	IncrementSinkFailures(eventType string)
}

// EventSink receives ad lifecycle events. *events.Fanout implements it.
type EventSink interface {
	Publish(ctx context.Context, evt events.Event) (int, error)
}

const (
	callerCoordinator = "coordinator"
	callerSlot        = "slot"
)

type noopMetrics struct{}

func (noopMetrics) IncrementConfigFetches(string, string)          {}
func (noopMetrics) RecordConfigFetchLatency(string, time.Duration) {}
func (noopMetrics) SetInitializationState(int)                     {}
func (noopMetrics) IncrementAdEvents(string)                       {}
func (noopMetrics) IncrementSinkFailures(string)                   {}

func ensureMetrics(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// fetchOutcome labels a fetch result for metrics.
func fetchOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var fe *adconfig.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}

// timedFetch runs a fetch and records its outcome and latency.
func timedFetch(ctx context.Context, f adconfig.ConfigFetcher, m Metrics, caller, publisherID string) (domain.AdConfig, error) {
	start := time.Now()
	cfg, err := f.Fetch(ctx, publisherID)
	m.RecordConfigFetchLatency(caller, time.Since(start))
	m.IncrementConfigFetches(caller, fetchOutcome(err))
	return cfg, err
}
