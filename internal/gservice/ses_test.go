package gservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-bulk-mcp/internal/format"
	"github.com/hal9000y/gmail-bulk-mcp/internal/gservice"
	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

type sesMock struct {
	SendEmailFunc func(ctx context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error)
}

func (m *sesMock) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, in)
}

func TestSESSendEmail(t *testing.T) {
	var got *sesv2.SendEmailInput
	api := &sesMock{
		SendEmailFunc: func(_ context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error) {
			got = in
			return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
		},
	}

	provider := gservice.NewSESWithClient(api, "noreply@example.com", format.Converter{})
	assert.Equal(t, "ses", provider.Name())

	client, err := provider.Connect(context.Background())
	require.NoError(t, err)

	id, err := client.SendEmail(context.Background(), mail.EmailMessage{
		To:      "alice@example.com",
		Subject: "Report",
		Body:    "<p>Hello <b>Alice</b></p>",
		Format:  mail.FormatHTML,
		CC:      []string{"bob@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)

	require.NotNil(t, got)
	assert.Equal(t, "noreply@example.com", aws.ToString(got.FromEmailAddress))
	assert.Equal(t, []string{"alice@example.com"}, got.Destination.ToAddresses)
	assert.Equal(t, []string{"bob@example.com"}, got.Destination.CcAddresses)
	assert.Equal(t, "Report", aws.ToString(got.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>Hello <b>Alice</b></p>", aws.ToString(got.Content.Simple.Body.Html.Data))
	assert.Equal(t, "Hello Alice", aws.ToString(got.Content.Simple.Body.Text.Data))
}

func TestSESSendEmailText(t *testing.T) {
	var got *sesv2.SendEmailInput
	api := &sesMock{
		SendEmailFunc: func(_ context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error) {
			got = in
			return &sesv2.SendEmailOutput{MessageId: aws.String("ses-2")}, nil
		},
	}

	client, err := gservice.NewSESWithClient(api, "noreply@example.com", nil).Connect(context.Background())
	require.NoError(t, err)

	_, err = client.SendEmail(context.Background(), mail.EmailMessage{To: "alice@example.com", Body: "plain"})
	require.NoError(t, err)
	assert.Nil(t, got.Content.Simple.Body.Html)
	assert.Equal(t, "plain", aws.ToString(got.Content.Simple.Body.Text.Data))
	assert.Equal(t, "UTF-8", aws.ToString(got.Content.Simple.Body.Text.Charset))
}

func TestSESSendEmailFailure(t *testing.T) {
	api := &sesMock{
		SendEmailFunc: func(context.Context, *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected: Email address is not verified")
		},
	}

	client, err := gservice.NewSESWithClient(api, "noreply@example.com", nil).Connect(context.Background())
	require.NoError(t, err)

	_, err = client.SendEmail(context.Background(), mail.EmailMessage{To: "alice@example.com"})
	require.ErrorContains(t, err, "not verified")

	_, err = client.SendEmail(context.Background(), mail.EmailMessage{To: ""})
	require.ErrorIs(t, err, mail.ErrInvalidMessage)

	assert.Equal(t, mail.PlaceholderQuota(), client.QuotaStatus(context.Background()))
	assert.NoError(t, client.Close())
}

func TestNewSESRequiresSender(t *testing.T) {
	_, err := gservice.NewSES(context.Background(), gservice.SESConfig{Region: "eu-west-1"}, nil)
	require.ErrorIs(t, err, gservice.ErrSenderRequired)
}
