package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrBucket    = "bucket"
	attrKind      = "kind"
	attrTool      = "tool"
)

// Metrics records meetview's metrics. A zero Metrics is a no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	brokerOperationsTotal   metric.Int64Counter
	brokerOperationDuration metric.Float64Histogram

	connectionInitiationsTotal metric.Int64Counter
	meetingsFetchesTotal       metric.Int64Counter
	meetingsEventsTotal        metric.Int64Counter
	errorClassificationsTotal  metric.Int64Counter
	signInsTotal               metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	if m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if m.brokerOperationsTotal, err = meter.Int64Counter(
		"broker_operations_total",
		metric.WithDescription("Total number of connection broker calls"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create broker_operations_total counter: %w", err)
	}

	if m.brokerOperationDuration, err = meter.Float64Histogram(
		"broker_operation_duration_seconds",
		metric.WithDescription("Connection broker call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create broker_operation_duration_seconds histogram: %w", err)
	}

	if m.connectionInitiationsTotal, err = meter.Int64Counter(
		"connection_initiations_total",
		metric.WithDescription("Total number of calendar connection handshakes started"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connection_initiations_total counter: %w", err)
	}

	if m.meetingsFetchesTotal, err = meter.Int64Counter(
		"meetings_fetches_total",
		metric.WithDescription("Total number of meetings queries"),
		metric.WithUnit("{fetch}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create meetings_fetches_total counter: %w", err)
	}

	if m.meetingsEventsTotal, err = meter.Int64Counter(
		"meetings_events_returned_total",
		metric.WithDescription("Total number of events returned, by bucket"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create meetings_events_returned_total counter: %w", err)
	}

	if m.errorClassificationsTotal, err = meter.Int64Counter(
		"error_classifications_total",
		metric.WithDescription("Total number of errors returned to callers, by kind"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create error_classifications_total counter: %w", err)
	}

	if m.signInsTotal, err = meter.Int64Counter(
		"sign_ins_total",
		metric.WithDescription("Total number of sign-in attempts"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sign_ins_total counter: %w", err)
	}

	if m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request. path must be a route template,
// not the raw URL.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBrokerOperation records one broker call.
func (m *Metrics) RecordBrokerOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.brokerOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.brokerOperationsTotal.Add(ctx, 1, attrs)
	m.brokerOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordConnectionInitiation records the result of a connect request.
func (m *Metrics) RecordConnectionInitiation(ctx context.Context, result string) {
	if m == nil || m.connectionInitiationsTotal == nil {
		return
	}
	m.connectionInitiationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordMeetingsFetch records a meetings query and the size of each bucket.
func (m *Metrics) RecordMeetingsFetch(ctx context.Context, status string, past, future int) {
	if m == nil || m.meetingsFetchesTotal == nil {
		return
	}
	m.meetingsFetchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
	if past > 0 {
		m.meetingsEventsTotal.Add(ctx, int64(past), metric.WithAttributes(attribute.String(attrBucket, BucketPast)))
	}
	if future > 0 {
		m.meetingsEventsTotal.Add(ctx, int64(future), metric.WithAttributes(attribute.String(attrBucket, BucketFuture)))
	}
}

// RecordErrorClassification records an error returned to a caller.
func (m *Metrics) RecordErrorClassification(ctx context.Context, kind string) {
	if m == nil || m.errorClassificationsTotal == nil {
		return
	}
	m.errorClassificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordSignIn records a sign-in attempt.
func (m *Metrics) RecordSignIn(ctx context.Context, result string) {
	if m == nil || m.signInsTotal == nil {
		return
	}
	m.signInsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
