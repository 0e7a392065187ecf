package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-bulk-mcp/internal/dispatch"
	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

type SendMultipleEmailsRequest struct {
	Request mail.BulkEmailRequest `json:"request" jsonschema:"the emails to send and the batching options"`
}

func NewSendMultipleEmails(provider mail.Provider, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *SendMultipleEmails {
	return &SendMultipleEmails{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type SendMultipleEmails struct {
	provider   mail.Provider
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

func (t *SendMultipleEmails) SendMultipleEmails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SendMultipleEmailsRequest,
) (*mcp.CallToolResult, mail.BulkEmailResponse, error) {
	req := input.Request
	if err := req.Validate(); err != nil {
		return nil, mail.BulkEmailResponse{}, err
	}

	client, err := t.provider.Connect(ctx)
	if err != nil {
		return nil, mail.BulkEmailResponse{}, fmt.Errorf("provider.Connect failed: %w", err)
	}
	defer closeClient(ctx, t.logger, client)

	resp, err := t.dispatcher.Dispatch(
		ctx,
		client,
		req.Emails,
		req.EffectiveBatchSize(),
		dispatch.SecondsToDuration(req.EffectiveDelay()),
	)
	if err != nil {
		return nil, mail.BulkEmailResponse{}, fmt.Errorf("dispatcher.Dispatch failed: %w", err)
	}

	t.logger.InfoContext(ctx, "bulk send finished",
		slog.Int("total", resp.TotalEmails),
		slog.Int("successful", resp.Successful),
		slog.Int("failed", resp.Failed),
	)

	return nil, resp, nil
}
