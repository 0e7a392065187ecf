package mail

import (
	"context"
	"errors"
)

// ErrSetup marks failures to obtain an authenticated client. They abort a
// whole tool invocation instead of producing per-message results.
var ErrSetup = errors.New("mail client setup failed")

// Client is an authenticated handle to a mail provider, obtained per tool
// invocation and released with Close.
type Client interface {
	// SendEmail sends one message and returns the provider message ID.
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
	// QuotaStatus returns the static quota placeholder.
	QuotaStatus(ctx context.Context) QuotaStatus
	Close() error
}

// Provider creates Clients. Implementations keep credentials, Clients are
// cheap per-call handles.
type Provider interface {
	Name() string
	Connect(ctx context.Context) (Client, error)
}
