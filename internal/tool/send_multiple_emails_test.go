package tool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-bulk-mcp/internal/dispatch"
	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
	"github.com/hal9000y/gmail-bulk-mcp/internal/tool"
)

type waitRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *waitRecorder) Wait(_ context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delays = append(w.delays, d)
	return nil
}

func (w *waitRecorder) Delays() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

func emails(n int) []mail.EmailMessage {
	out := make([]mail.EmailMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mail.EmailMessage{
			To:      fmt.Sprintf("user%d@example.com", i),
			Subject: fmt.Sprintf("Subject %d", i),
			Body:    "hello",
		})
	}
	return out
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestSendMultipleEmails(t *testing.T) {
	client := &clientMock{
		SendEmailFunc: func(_ context.Context, msg mail.EmailMessage) (string, error) {
			if msg.To == "user2@example.com" {
				return "", errors.New("invalid recipient")
			}
			return "id-" + msg.To, nil
		},
	}
	waits := &waitRecorder{}
	session := connect(t, connectTo(client), tool.ServerConfig{
		Dispatcher: dispatch.New(dispatch.WithWait(waits.Wait)),
	})

	result := callTool(t, session, "send_multiple_emails", tool.SendMultipleEmailsRequest{
		Request: mail.BulkEmailRequest{
			Emails:              emails(5),
			BatchSize:           intPtr(2),
			DelayBetweenBatches: floatPtr(0.5),
		},
	})

	var got mail.BulkEmailResponse
	decodeResult(t, result, &got)

	assert.Equal(t, 5, got.TotalEmails)
	assert.Equal(t, 4, got.Successful)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Results, 5)
	for i, res := range got.Results {
		assert.Equal(t, i, res.EmailIndex)
		assert.Equal(t, fmt.Sprintf("user%d@example.com", i), res.Recipient)
	}
	assert.Equal(t, mail.EmailSendResult{
		EmailIndex: 2,
		Recipient:  "user2@example.com",
		Error:      "invalid recipient",
	}, got.Results[2])
	assert.Equal(t, "id-user4@example.com", got.Results[4].MessageID)

	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, waits.Delays())
	assert.Len(t, client.Sent(), 5)
	assert.Equal(t, 1, client.Closed())
}

func TestSendMultipleEmailsDefaults(t *testing.T) {
	client := &clientMock{
		SendEmailFunc: func(context.Context, mail.EmailMessage) (string, error) { return "id", nil },
	}
	waits := &waitRecorder{}
	session := connect(t, connectTo(client), tool.ServerConfig{
		Dispatcher: dispatch.New(dispatch.WithWait(waits.Wait)),
	})

	result := callTool(t, session, "send_multiple_emails", tool.SendMultipleEmailsRequest{
		Request: mail.BulkEmailRequest{Emails: emails(12)},
	})

	var got mail.BulkEmailResponse
	decodeResult(t, result, &got)

	assert.Equal(t, 12, got.Successful)
	assert.Equal(t, []time.Duration{time.Second}, waits.Delays())
}

func TestSendMultipleEmailsInvalidMessageIsPerMessageFailure(t *testing.T) {
	client := &clientMock{
		SendEmailFunc: func(_ context.Context, msg mail.EmailMessage) (string, error) {
			if err := msg.Validate(); err != nil {
				return "", err
			}
			return "id", nil
		},
	}
	session := connect(t, connectTo(client), tool.ServerConfig{
		Dispatcher: dispatch.New(dispatch.WithWait((&waitRecorder{}).Wait)),
	})

	msgs := emails(3)
	msgs[1].To = "broken"

	result := callTool(t, session, "send_multiple_emails", tool.SendMultipleEmailsRequest{
		Request: mail.BulkEmailRequest{Emails: msgs},
	})

	var got mail.BulkEmailResponse
	decodeResult(t, result, &got)

	assert.Equal(t, 2, got.Successful)
	assert.Equal(t, 1, got.Failed)
	assert.False(t, got.Results[1].Success)
	assert.Contains(t, got.Results[1].Error, "invalid")
}

func TestSendMultipleEmailsEmpty(t *testing.T) {
	client := &clientMock{
		SendEmailFunc: func(context.Context, mail.EmailMessage) (string, error) { return "id", nil },
	}
	waits := &waitRecorder{}
	session := connect(t, connectTo(client), tool.ServerConfig{
		Dispatcher: dispatch.New(dispatch.WithWait(waits.Wait)),
	})

	result := callTool(t, session, "send_multiple_emails", tool.SendMultipleEmailsRequest{
		Request: mail.BulkEmailRequest{Emails: []mail.EmailMessage{}},
	})

	var got mail.BulkEmailResponse
	decodeResult(t, result, &got)

	assert.Equal(t, 0, got.TotalEmails)
	assert.Equal(t, 0, got.Successful)
	assert.Equal(t, 0, got.Failed)
	assert.Empty(t, got.Results)
	assert.Empty(t, waits.Delays())
	assert.Empty(t, client.Sent())
}

func TestSendMultipleEmailsInvalidRequest(t *testing.T) {
	cases := []struct {
		name string
		req  mail.BulkEmailRequest
	}{
		{
			name: "zero batch size",
			req:  mail.BulkEmailRequest{Emails: emails(2), BatchSize: intPtr(0)},
		},
		{
			name: "negative delay",
			req:  mail.BulkEmailRequest{Emails: emails(2), DelayBetweenBatches: floatPtr(-1)},
		},
		{
			name: "delay beyond maximum",
			req:  mail.BulkEmailRequest{Emails: emails(2), DelayBetweenBatches: floatPtr(1e300)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			connected := false
			provider := &providerMock{
				ConnectFunc: func(context.Context) (mail.Client, error) {
					connected = true
					return nil, errors.New("unexpected connect")
				},
			}
			session := connect(t, provider, tool.ServerConfig{})

			result := callTool(t, session, "send_multiple_emails", tool.SendMultipleEmailsRequest{Request: tc.req})

			require.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), mail.ErrInvalidRequest.Error())
			assert.False(t, connected)
		})
	}
}

func TestSendMultipleEmailsSetupFailure(t *testing.T) {
	provider := &providerMock{
		ConnectFunc: func(context.Context) (mail.Client, error) {
			return nil, fmt.Errorf("%w: token refresh failed", mail.ErrSetup)
		},
	}
	session := connect(t, provider, tool.ServerConfig{})

	result := callTool(t, session, "send_multiple_emails", tool.SendMultipleEmailsRequest{
		Request: mail.BulkEmailRequest{Emails: emails(3)},
	})

	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "mail client setup failed")
}
