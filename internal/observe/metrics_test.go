package observe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MimeLyc/xieyin/internal/resolve"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", name, m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func histogramCount(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) uint64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is %T", name, m.Data)
	var count uint64
	for _, dp := range hist.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v.Emit() == attr.Value.Emit() {
			count += dp.Count
		}
	}
	return count
}

func TestObserveResolve_Success(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ObserveResolve(ctx, resolve.Stats{Words: 5, Hits: 3, Queued: 2, Fetched: 2, Duration: 120 * time.Millisecond}, nil)
	m.ObserveResolve(ctx, resolve.Stats{Words: 2, Hits: 2, Duration: time.Millisecond}, nil)

	rm := collect(t, reader)
	assert.Equal(t, int64(7), counterTotal(t, rm, "xieyin.lookup.words"))
	assert.Equal(t, int64(5), counterTotal(t, rm, "xieyin.cache.hits"))
	assert.Equal(t, int64(2), counterTotal(t, rm, "xieyin.cache.misses"))
	assert.Equal(t, int64(0), counterTotal(t, rm, "xieyin.lookup.errors"))
	assert.Equal(t, uint64(2), histogramCount(t, rm, "xieyin.lookup.duration", attribute.String("status", "ok")))
}

func TestObserveResolve_Error(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.ObserveResolve(context.Background(), resolve.Stats{Words: 1, Queued: 1}, errors.New("boom"))

	rm := collect(t, reader)
	assert.Equal(t, int64(1), counterTotal(t, rm, "xieyin.lookup.errors"))
	assert.Equal(t, uint64(1), histogramCount(t, rm, "xieyin.lookup.duration", attribute.String("status", "error")))
}

func TestRecordFlushError(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordFlushError(context.Background())
	m.RecordFlushError(context.Background())

	assert.Equal(t, int64(2), counterTotal(t, collect(t, reader), "xieyin.cache.flush.errors"))
}

func TestMiddleware_RecordsStatusAndDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/api/main", "/missing"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	rm := collect(t, reader)
	assert.Equal(t, uint64(1), histogramCount(t, rm, "xieyin.http.request.duration", attribute.String("status", "200")))
	assert.Equal(t, uint64(1), histogramCount(t, rm, "xieyin.http.request.duration", attribute.String("status", "404")))
	assert.Equal(t, uint64(1), histogramCount(t, rm, "xieyin.http.request.duration", attribute.String("path", "/missing")))
}

func TestMiddleware_PassesResponseThrough(t *testing.T) {
	m, _ := newTestMetrics(t)
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/main", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
