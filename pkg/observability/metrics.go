package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTransformsTotal   = "importlyrical.transforms.total"
	metricTransformDuration = "importlyrical.transform.duration.seconds"
	metricComponentImports  = "importlyrical.component_imports.total"
	metricStyleImports      = "importlyrical.style_imports.total"

	metricToolCallsTotal   = "importlyrical.tool_calls.total"
	metricToolCallDuration = "importlyrical.tool_call.duration.seconds"

	attrOutcome = "outcome"
	attrTool    = "tool"
	attrStatus  = "status"
)

// transformBuckets covers sub-millisecond skips up to slow parses.
var transformBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// TransformMetrics records per-file transform observations.
type TransformMetrics struct {
	transforms metric.Int64Counter
	duration   metric.Float64Histogram
	components metric.Int64Counter
	styles     metric.Int64Counter
}

// NewTransformMetrics creates the transform instruments from mt.
func NewTransformMetrics(mt metric.Meter) (*TransformMetrics, error) {
	transforms, err := mt.Int64Counter(metricTransformsTotal,
		metric.WithDescription("Modules seen by the transform hook"),
		metric.WithUnit("{module}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTransformsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricTransformDuration,
		metric.WithDescription("Transform duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(transformBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTransformDuration, err)
	}

	components, err := mt.Int64Counter(metricComponentImports,
		metric.WithDescription("Generated per-component imports"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricComponentImports, err)
	}

	styles, err := mt.Int64Counter(metricStyleImports,
		metric.WithDescription("Generated stylesheet imports"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStyleImports, err)
	}

	return &TransformMetrics{
		transforms: transforms,
		duration:   duration,
		components: components,
		styles:     styles,
	}, nil
}

// RecordTransform records one transform call.
func (tm *TransformMetrics) RecordTransform(ctx context.Context, outcome string, duration time.Duration, components, styles int) {
	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))

	tm.transforms.Add(ctx, 1, attrs)
	tm.duration.Record(ctx, duration.Seconds(), attrs)

	if components > 0 {
		tm.components.Add(ctx, int64(components))
	}

	if styles > 0 {
		tm.styles.Add(ctx, int64(styles))
	}
}

// ToolMetrics records MCP tool calls.
type ToolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewToolMetrics creates the tool-call instruments from mt.
func NewToolMetrics(mt metric.Meter) (*ToolMetrics, error) {
	calls, err := mt.Int64Counter(metricToolCallsTotal,
		metric.WithDescription("MCP tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricToolCallDuration,
		metric.WithDescription("MCP tool call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallDuration, err)
	}

	return &ToolMetrics{calls: calls, duration: duration}, nil
}

// RecordCall records one tool invocation.
func (tm *ToolMetrics) RecordCall(ctx context.Context, tool, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrTool, tool), attribute.String(attrStatus, status))

	tm.calls.Add(ctx, 1, attrs)
	tm.duration.Record(ctx, duration.Seconds(), attrs)
}
