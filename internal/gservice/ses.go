package gservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

const charsetUTF8 = "UTF-8"

// ErrSenderRequired is returned when SES is configured without a From address.
var ErrSenderRequired = errors.New("ses sender address is required")

// SESConfig holds the SES provider settings. Empty keys fall back to the
// default AWS credential chain.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type textRenderer interface {
	HTML2Text(raw []byte) (string, error)
}

// SES sends messages through the SES v2 SendEmail API.
type SES struct {
	api  sesAPI
	from string
	conv textRenderer
}

// NewSES loads the AWS configuration and creates the SES provider.
func NewSES(ctx context.Context, cfg SESConfig, conv textRenderer) (*SES, error) {
	if cfg.From == "" {
		return nil, ErrSenderRequired
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: awsconfig.LoadDefaultConfig failed: %w", mail.ErrSetup, err)
	}

	return NewSESWithClient(sesv2.NewFromConfig(awsCfg), cfg.From, conv), nil
}

// NewSESWithClient creates the SES provider over an existing API client.
func NewSESWithClient(api sesAPI, from string, conv textRenderer) *SES {
	return &SES{api: api, from: from, conv: conv}
}

func (s *SES) Name() string {
	return "ses"
}

// Connect returns a handle over the shared SDK client.
func (s *SES) Connect(context.Context) (mail.Client, error) {
	return &sesClient{provider: s}, nil
}

type sesClient struct {
	provider *SES
}

func (c *sesClient) SendEmail(ctx context.Context, msg mail.EmailMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	body := &types.Body{}
	if msg.IsHTML() {
		body.Html = utf8Content(msg.Body)
		if c.provider.conv != nil {
			text, err := c.provider.conv.HTML2Text([]byte(msg.Body))
			if err != nil {
				return "", fmt.Errorf("conv.HTML2Text failed: %w", err)
			}
			body.Text = utf8Content(text)
		}
	} else {
		body.Text = utf8Content(msg.Body)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.provider.from),
		Destination: &types.Destination{
			ToAddresses:  []string{msg.To},
			CcAddresses:  msg.CC,
			BccAddresses: msg.BCC,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(msg.Subject),
				Body:    body,
			},
		},
	}

	out, err := c.provider.api.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses.SendEmail failed: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}

func (c *sesClient) QuotaStatus(context.Context) mail.QuotaStatus {
	return mail.PlaceholderQuota()
}

func (c *sesClient) Close() error {
	return nil
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String(charsetUTF8)}
}
