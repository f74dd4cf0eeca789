package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AnCIity/importlyrical/pkg/observability"
)

func newTestReader(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumInt(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestTransformMetrics_RecordTransform(t *testing.T) {
	t.Parallel()

	mp, reader := newTestReader(t)

	tm, err := observability.NewTransformMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tm.RecordTransform(ctx, "rewritten", 2*time.Millisecond, 3, 3)
	tm.RecordTransform(ctx, "skipped", time.Microsecond, 0, 0)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumInt(t, findMetric(rm, "importlyrical.transforms.total")))
	assert.Equal(t, int64(3), sumInt(t, findMetric(rm, "importlyrical.component_imports.total")))
	assert.Equal(t, int64(3), sumInt(t, findMetric(rm, "importlyrical.style_imports.total")))

	hist := findMetric(rm, "importlyrical.transform.duration.seconds")
	require.NotNil(t, hist)

	data, ok := hist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, data.DataPoints, 2)
}

func TestToolMetrics_RecordCall(t *testing.T) {
	t.Parallel()

	mp, reader := newTestReader(t)

	tm, err := observability.NewToolMetrics(mp.Meter("test"))
	require.NoError(t, err)

	tm.RecordCall(context.Background(), "importlyrical_scan", "ok", time.Millisecond)
	tm.RecordCall(context.Background(), "importlyrical_scan", "error", time.Millisecond)

	rm := collectMetrics(t, reader)

	calls := findMetric(rm, "importlyrical.tool_calls.total")
	assert.Equal(t, int64(2), sumInt(t, calls))

	sum, ok := calls.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}
