// Package tool registers the email tools on an MCP server.
package tool

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hal9000y/gmail-bulk-mcp/internal/dispatch"
	"github.com/hal9000y/gmail-bulk-mcp/internal/instrumentation"
	"github.com/hal9000y/gmail-bulk-mcp/internal/logging"
	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
	"github.com/hal9000y/gmail-bulk-mcp/internal/ratelimit"
)

const (
	serverName = "gmail-bulk-mcp"

	toolSendSingleEmail    = "send_single_email"
	toolSendMultipleEmails = "send_multiple_emails"
	toolQuotaStatus        = "get_email_quota_status"
)

// ServerConfig holds optional collaborators of the server. Zero values
// disable the matching feature.
type ServerConfig struct {
	Version    string
	Dispatcher *dispatch.Dispatcher
	Limiter    *ratelimit.SlidingWindow
	// CallerKey is the identity tool calls are limited by. Empty means the
	// MCP session id.
	CallerKey string
	Metrics   *instrumentation.Metrics
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

func (c ServerConfig) withDefaults(provider mail.Provider) ServerConfig {
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.Metrics == nil {
		c.Metrics = &instrumentation.Metrics{}
	}
	if c.Tracer == nil {
		c.Tracer = noop.NewTracerProvider().Tracer(serverName)
	}
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	if c.Dispatcher == nil {
		c.Dispatcher = dispatch.New(
			dispatch.WithMetrics(c.Metrics),
			dispatch.WithLogger(c.Logger),
			dispatch.WithProviderName(provider.Name()),
		)
	}
	return c
}

// backendLabel names the mail service in user-facing descriptions.
func backendLabel(provider mail.Provider) string {
	switch provider.Name() {
	case "gmail":
		return "the Gmail API"
	case "ses":
		return "Amazon SES"
	default:
		return provider.Name()
	}
}

// NewServer creates an MCP server with the email tools.
func NewServer(provider mail.Provider, cfg ServerConfig) *mcp.Server {
	cfg = cfg.withDefaults(provider)
	via := backendLabel(provider)

	server := mcp.NewServer(
		&mcp.Implementation{Name: serverName, Version: cfg.Version},
		&mcp.ServerOptions{Instructions: "An MCP server to send emails using " + via + "."},
	)

	if cfg.Limiter != nil {
		key := ratelimit.SessionKey
		if cfg.CallerKey != "" {
			key = ratelimit.FixedKey(cfg.CallerKey)
		}
		server.AddReceivingMiddleware(ratelimit.Middleware(cfg.Limiter, key, cfg.Metrics, cfg.Logger))
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: toolSendSingleEmail,
		Description: "Sends a single email using " + via + " and returns the result of the send operation. " +
			"A message the provider rejects, including an invalid address, is reported as a failed result.",
	}, instrument(cfg, toolSendSingleEmail, NewSendSingleEmail(provider, cfg.Dispatcher, cfg.Logger).SendSingleEmail))

	mcp.AddTool(server, &mcp.Tool{
		Name: toolSendMultipleEmails,
		Description: "Sends multiple emails in batches using " + via + ", pausing between batches. " +
			"Returns one result per email in request order.",
	}, instrument(cfg, toolSendMultipleEmails, NewSendMultipleEmails(provider, cfg.Dispatcher, cfg.Logger).SendMultipleEmails))

	mcp.AddTool(server, &mcp.Tool{
		Name: toolQuotaStatus,
		Description: "Returns sending quota information for " + via + ". There is no programmatic quota " +
			"lookup, so this is static information based on general limits and not live data.",
	}, instrument(cfg, toolQuotaStatus, NewQuotaStatus(provider, cfg.Logger).QuotaStatus))

	return server
}
