package mail_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

func TestEmailMessageValidate(t *testing.T) {
	cases := []struct {
		name    string
		msg     mail.EmailMessage
		wantErr string
	}{
		{
			name: "plain text",
			msg:  mail.EmailMessage{To: "alice@example.com", Subject: "hi", Body: "hello"},
		},
		{
			name: "html with display name and copies",
			msg: mail.EmailMessage{
				To:     "Alice <alice@example.com>",
				Format: mail.FormatHTML,
				CC:     []string{"bob@example.com"},
				BCC:    []string{"carol@example.com"},
			},
		},
		{
			name:    "missing recipient",
			msg:     mail.EmailMessage{Subject: "hi"},
			wantErr: "to is required",
		},
		{
			name:    "bad recipient",
			msg:     mail.EmailMessage{To: "not-an-address"},
			wantErr: "to:",
		},
		{
			name:    "bad cc",
			msg:     mail.EmailMessage{To: "alice@example.com", CC: []string{"ok@example.com", "broken"}},
			wantErr: "cc[1]",
		},
		{
			name:    "bad bcc",
			msg:     mail.EmailMessage{To: "alice@example.com", BCC: []string{"@@"}},
			wantErr: "bcc[0]",
		},
		{
			name:    "unknown format",
			msg:     mail.EmailMessage{To: "alice@example.com", Format: "markdown"},
			wantErr: `unsupported format "markdown"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, mail.ErrInvalidMessage)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBulkEmailRequestDefaults(t *testing.T) {
	req := mail.BulkEmailRequest{}
	assert.Equal(t, mail.DefaultBatchSize, req.EffectiveBatchSize())
	assert.InDelta(t, mail.DefaultDelayBetweenBatches, req.EffectiveDelay(), 0)
	require.NoError(t, req.Validate())

	size, delay := 3, 0.0
	req = mail.BulkEmailRequest{BatchSize: &size, DelayBetweenBatches: &delay}
	assert.Equal(t, 3, req.EffectiveBatchSize())
	assert.InDelta(t, 0.0, req.EffectiveDelay(), 0)
	require.NoError(t, req.Validate())
}

func TestBulkEmailRequestValidate(t *testing.T) {
	zero, negative := 0, -1.5

	err := mail.BulkEmailRequest{BatchSize: &zero}.Validate()
	require.ErrorIs(t, err, mail.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "batch_size")

	err = mail.BulkEmailRequest{DelayBetweenBatches: &negative}.Validate()
	require.ErrorIs(t, err, mail.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "delay_between_batches")

	for _, delay := range []float64{mail.MaxDelayBetweenBatches + 1, 1e300, math.Inf(1), math.NaN()} {
		err = mail.BulkEmailRequest{DelayBetweenBatches: &delay}.Validate()
		require.ErrorIs(t, err, mail.ErrInvalidRequest, "delay %v", delay)
		assert.Contains(t, err.Error(), "at most")
	}

	ceiling := mail.MaxDelayBetweenBatches
	require.NoError(t, mail.BulkEmailRequest{DelayBetweenBatches: &ceiling}.Validate())
}

func TestPlaceholderQuota(t *testing.T) {
	assert.Equal(t, mail.QuotaStatus{
		CurrentUsage: 0,
		Limit:        500,
		ResetTime:    "Daily reset (not live data)",
	}, mail.PlaceholderQuota())
}
