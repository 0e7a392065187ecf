// Package gservice implements mail.Provider on top of Gmail and Amazon SES.
package gservice

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

const gmailUserID = "me"

// GmailScopes are the OAuth scopes the Gmail provider needs.
var GmailScopes = []string{gmail.GmailSendScope}

type tokenStore interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
	Persist() error
}

type rawBuilder interface {
	Build(msg mail.EmailMessage) ([]byte, error)
}

// NewGmail creates the Gmail provider. opts are appended to the service
// options, tests use them to point the client at a local endpoint.
func NewGmail(tok tokenStore, builder rawBuilder, opts ...option.ClientOption) *GMail {
	return &GMail{
		tok:     tok,
		builder: builder,
		opts:    opts,
	}
}

// GMail sends messages through users.messages.send.
type GMail struct {
	tok     tokenStore
	builder rawBuilder
	opts    []option.ClientOption
}

func (m *GMail) Name() string {
	return "gmail"
}

// Connect fetches a token up front, so missing or expired credentials fail
// here rather than on every message.
func (m *GMail) Connect(ctx context.Context) (mail.Client, error) {
	ts, err := m.tok.TokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: tok.TokenSource failed: %w", mail.ErrSetup, err)
	}

	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("%w: ts.Token failed: %w", mail.ErrSetup, err)
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, m.opts...)

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gmail.NewService failed: %w", mail.ErrSetup, err)
	}

	return &gmailClient{svc: svc, tok: m.tok, builder: m.builder}, nil
}

type gmailClient struct {
	svc     *gmail.Service
	tok     tokenStore
	builder rawBuilder
}

func (c *gmailClient) SendEmail(ctx context.Context, msg mail.EmailMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	raw, err := c.builder.Build(msg)
	if err != nil {
		return "", fmt.Errorf("builder.Build failed: %w", err)
	}

	sent, err := c.svc.Users.Messages.Send(gmailUserID, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("messages.Send failed: %w", err)
	}

	return sent.Id, nil
}

func (c *gmailClient) QuotaStatus(context.Context) mail.QuotaStatus {
	return mail.PlaceholderQuota()
}

// Close persists the token, which may have been refreshed during the call.
func (c *gmailClient) Close() error {
	if err := c.tok.Persist(); err != nil {
		return fmt.Errorf("tok.Persist failed: %w", err)
	}
	return nil
}
