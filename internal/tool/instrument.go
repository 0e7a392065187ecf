package tool

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hal9000y/gmail-bulk-mcp/internal/instrumentation"
	"github.com/hal9000y/gmail-bulk-mcp/internal/logging"
)

// instrument wraps a tool handler with a span, the invocation metrics and
// a completion log line.
func instrument[In, Out any](cfg ServerConfig, name string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	logger := logging.WithTool(cfg.Logger, name)

	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		ctx, span := cfg.Tracer.Start(ctx, "tool "+name)
		defer span.End()
		span.SetAttributes(attribute.String("mcp.tool", name))

		start := time.Now()
		res, out, err := h(ctx, req, in)
		elapsed := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.WarnContext(ctx, "tool call failed", slog.Duration(logging.KeyDuration, elapsed), logging.Err(err))
		} else {
			logger.InfoContext(ctx, "tool call completed", slog.Duration(logging.KeyDuration, elapsed))
		}
		cfg.Metrics.RecordToolInvocation(ctx, name, status, elapsed)

		return res, out, err
	}
}
