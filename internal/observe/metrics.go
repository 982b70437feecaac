// Package observe records OpenTelemetry metrics for lookups, cache flushes and
// HTTP requests. [InitProvider] bridges them to a Prometheus exporter so the
// server can expose /metrics; tests should build their own [Metrics] with
// [NewMetrics] and a manual reader.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MimeLyc/xieyin/internal/resolve"
)

const meterName = "github.com/MimeLyc/xieyin"

// Metrics holds the metric instruments of the service. All fields are safe for
// concurrent use.
type Metrics struct {
	// LookupDuration tracks the latency of one resolve call, remote fetch
	// included. Attribute: status ("ok" | "error").
	LookupDuration metric.Float64Histogram

	// LookupWords counts word occurrences passed to the resolver.
	LookupWords metric.Int64Counter

	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// LookupErrors counts failed remote lookups.
	LookupErrors metric.Int64Counter

	// FlushErrors counts failed lexicon writes.
	FlushErrors metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are in seconds. Remote lookups take one to several seconds.
var latencyBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LookupDuration, err = m.Float64Histogram("xieyin.lookup.duration",
		metric.WithDescription("Latency of resolving the words of one request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LookupWords, err = m.Int64Counter("xieyin.lookup.words",
		metric.WithDescription("Total word occurrences resolved."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("xieyin.cache.hits",
		metric.WithDescription("Word occurrences answered from the lexicon."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("xieyin.cache.misses",
		metric.WithDescription("Distinct words sent to the remote lookup."),
	); err != nil {
		return nil, err
	}
	if met.LookupErrors, err = m.Int64Counter("xieyin.lookup.errors",
		metric.WithDescription("Failed remote lookups."),
	); err != nil {
		return nil, err
	}
	if met.FlushErrors, err = m.Int64Counter("xieyin.cache.flush.errors",
		metric.WithDescription("Failed lexicon writes."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("xieyin.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// ObserveResolve records the outcome of one resolve call.
func (m *Metrics) ObserveResolve(ctx context.Context, stats resolve.Stats, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.LookupErrors.Add(ctx, 1)
	}
	m.LookupDuration.Record(ctx, stats.Duration.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.LookupWords.Add(ctx, int64(stats.Words))
	m.CacheHits.Add(ctx, int64(stats.Hits))
	m.CacheMisses.Add(ctx, int64(stats.Queued))
}

// RecordFlushError counts one failed lexicon write.
func (m *Metrics) RecordFlushError(ctx context.Context) {
	m.FlushErrors.Add(ctx, 1)
}
