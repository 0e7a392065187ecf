package tool_test

import (
	"context"
	"sync"

	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

type providerMock struct {
	NameValue   string
	ConnectFunc func(ctx context.Context) (mail.Client, error)
}

func (m *providerMock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *providerMock) Connect(ctx context.Context) (mail.Client, error) {
	return m.ConnectFunc(ctx)
}

type clientMock struct {
	mu            sync.Mutex
	SendEmailFunc func(ctx context.Context, msg mail.EmailMessage) (string, error)
	sent          []mail.EmailMessage
	closed        int
}

func (m *clientMock) SendEmail(ctx context.Context, msg mail.EmailMessage) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return m.SendEmailFunc(ctx, msg)
}

func (m *clientMock) QuotaStatus(context.Context) mail.QuotaStatus {
	return mail.PlaceholderQuota()
}

func (m *clientMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *clientMock) Sent() []mail.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.EmailMessage(nil), m.sent...)
}

func (m *clientMock) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// validatingClient validates like the real provider clients do before
// handing the message over.
func validatingClient() *clientMock {
	return &clientMock{
		SendEmailFunc: func(_ context.Context, msg mail.EmailMessage) (string, error) {
			if err := msg.Validate(); err != nil {
				return "", err
			}
			return "id-" + msg.To, nil
		},
	}
}

func connectTo(client mail.Client) *providerMock {
	return &providerMock{
		ConnectFunc: func(context.Context) (mail.Client, error) { return client, nil },
	}
}
