package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status values used as metric attributes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	attrTool     = "tool"
	attrProvider = "provider"
	attrStatus   = "status"
)

// Metrics records tool and send metrics. The zero value is a no-op.
type Metrics struct {
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	emailSendsTotal   metric.Int64Counter
	emailSendDuration metric.Float64Histogram

	pacingDelaysTotal metric.Int64Counter
	rateLimitedTotal  metric.Int64Counter
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"tool_duration_seconds",
		metric.WithDescription("MCP tool invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_duration_seconds histogram: %w", err)
	}

	m.emailSendsTotal, err = meter.Int64Counter(
		"email_sends_total",
		metric.WithDescription("Total number of email send attempts"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create email_sends_total counter: %w", err)
	}

	m.emailSendDuration, err = meter.Float64Histogram(
		"email_send_duration_seconds",
		metric.WithDescription("Provider send call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create email_send_duration_seconds histogram: %w", err)
	}

	m.pacingDelaysTotal, err = meter.Int64Counter(
		"batch_pacing_delays_total",
		metric.WithDescription("Total number of pacing delays inserted between batches"),
		metric.WithUnit("{delay}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_pacing_delays_total counter: %w", err)
	}

	m.rateLimitedTotal, err = meter.Int64Counter(
		"rate_limited_calls_total",
		metric.WithDescription("Total number of tool calls rejected by the rate limiter"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limited_calls_total counter: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records one tool call.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string, d time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordEmailSend records one provider send attempt.
func (m *Metrics) RecordEmailSend(ctx context.Context, provider, status string, d time.Duration) {
	if m == nil || m.emailSendsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	)
	m.emailSendsTotal.Add(ctx, 1, attrs)
	m.emailSendDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordPacingDelay counts one inter-batch pause.
func (m *Metrics) RecordPacingDelay(ctx context.Context) {
	if m == nil || m.pacingDelaysTotal == nil {
		return
	}
	m.pacingDelaysTotal.Add(ctx, 1)
}

// RecordRateLimited counts one rejected tool call.
func (m *Metrics) RecordRateLimited(ctx context.Context, tool string) {
	if m == nil || m.rateLimitedTotal == nil {
		return
	}
	m.rateLimitedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTool, tool)))
}
