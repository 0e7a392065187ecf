package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-bulk-mcp/internal/dispatch"
	"github.com/hal9000y/gmail-bulk-mcp/internal/logging"
	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

type SendSingleEmailRequest struct {
	Email mail.EmailMessage `json:"email" jsonschema:"the email message to send"`
}

func NewSendSingleEmail(provider mail.Provider, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *SendSingleEmail {
	return &SendSingleEmail{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type SendSingleEmail struct {
	provider   mail.Provider
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// SendSingleEmail sends one message. Anything the provider client rejects,
// an invalid address included, is reported in the result the same way
// send_multiple_emails reports it. Only setup failures are tool errors.
func (t *SendSingleEmail) SendSingleEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SendSingleEmailRequest,
) (*mcp.CallToolResult, mail.EmailSendResult, error) {
	client, err := t.provider.Connect(ctx)
	if err != nil {
		return nil, mail.EmailSendResult{}, fmt.Errorf("provider.Connect failed: %w", err)
	}
	defer closeClient(ctx, t.logger, client)

	return nil, t.dispatcher.SendOne(ctx, client, 0, input.Email), nil
}

func closeClient(ctx context.Context, logger *slog.Logger, client mail.Client) {
	if err := client.Close(); err != nil {
		logger.WarnContext(ctx, "client.Close failed", logging.Err(err))
	}
}
