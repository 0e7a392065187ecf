package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

type QuotaStatusRequest struct{}

func NewQuotaStatus(provider mail.Provider, logger *slog.Logger) *QuotaStatus {
	return &QuotaStatus{
		provider: provider,
		logger:   logger,
	}
}

type QuotaStatus struct {
	provider mail.Provider
	logger   *slog.Logger
}

// QuotaStatus connects like the send tools do, so credential problems show
// up here too, and returns the static quota information.
func (t *QuotaStatus) QuotaStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ QuotaStatusRequest,
) (*mcp.CallToolResult, mail.QuotaStatus, error) {
	client, err := t.provider.Connect(ctx)
	if err != nil {
		return nil, mail.QuotaStatus{}, fmt.Errorf("provider.Connect failed: %w", err)
	}
	defer closeClient(ctx, t.logger, client)

	return nil, client.QuotaStatus(ctx), nil
}
