// Package mail defines the outbound email model and the provider contract
// shared by the dispatcher, the provider clients and the MCP tools.
package mail

// Format selects the body content type of an EmailMessage.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// Defaults applied to a BulkEmailRequest when the caller omits them.
const (
	DefaultBatchSize           = 10
	DefaultDelayBetweenBatches = 1.0
)

// MaxDelayBetweenBatches caps the pacing delay, in seconds.
const MaxDelayBetweenBatches = 3600.0

// EmailMessage is a single outbound email.
type EmailMessage struct {
	To      string   `json:"to" jsonschema:"the primary recipient's email address"`
	Subject string   `json:"subject" jsonschema:"email subject"`
	Body    string   `json:"body" jsonschema:"email body"`
	Format  Format   `json:"format,omitempty" jsonschema:"body format: text or html (default text)"`
	CC      []string `json:"cc,omitempty" jsonschema:"list of CC recipients"`
	BCC     []string `json:"bcc,omitempty" jsonschema:"list of BCC recipients"`
}

// IsHTML reports whether the body should be sent as text/html.
func (m EmailMessage) IsHTML() bool {
	return m.Format == FormatHTML
}

// BulkEmailRequest is the input of the bulk send tool.
type BulkEmailRequest struct {
	Emails              []EmailMessage `json:"emails" jsonschema:"emails to send, in order"`
	BatchSize           *int           `json:"batch_size,omitempty" jsonschema:"number of emails per batch for rate limiting (default 10)"`
	DelayBetweenBatches *float64       `json:"delay_between_batches,omitempty" jsonschema:"delay in seconds between batches (default 1.0, at most 3600)"`
}

// EffectiveBatchSize returns the requested batch size or the default.
func (r BulkEmailRequest) EffectiveBatchSize() int {
	if r.BatchSize == nil {
		return DefaultBatchSize
	}
	return *r.BatchSize
}

// EffectiveDelay returns the requested inter-batch delay in seconds or the default.
func (r BulkEmailRequest) EffectiveDelay() float64 {
	if r.DelayBetweenBatches == nil {
		return DefaultDelayBetweenBatches
	}
	return *r.DelayBetweenBatches
}

// EmailSendResult is the outcome of sending one message.
type EmailSendResult struct {
	EmailIndex int    `json:"email_index" jsonschema:"position of the email in the request"`
	Success    bool   `json:"success" jsonschema:"whether the provider accepted the email"`
	Recipient  string `json:"recipient" jsonschema:"the primary recipient"`
	MessageID  string `json:"message_id,omitempty" jsonschema:"provider message ID, set on success"`
	Error      string `json:"error,omitempty" jsonschema:"provider error, set on failure"`
}

// NewSuccessResult records an accepted message.
func NewSuccessResult(index int, recipient, messageID string) EmailSendResult {
	return EmailSendResult{
		EmailIndex: index,
		Success:    true,
		Recipient:  recipient,
		MessageID:  messageID,
	}
}

// NewErrorResult records a rejected message.
func NewErrorResult(index int, recipient string, err error) EmailSendResult {
	return EmailSendResult{
		EmailIndex: index,
		Success:    false,
		Recipient:  recipient,
		Error:      err.Error(),
	}
}

// BulkEmailResponse aggregates the results of a bulk send.
type BulkEmailResponse struct {
	TotalEmails int               `json:"total_emails" jsonschema:"number of emails in the request"`
	Successful  int               `json:"successful" jsonschema:"number of emails accepted"`
	Failed      int               `json:"failed" jsonschema:"number of emails rejected"`
	Results     []EmailSendResult `json:"results" jsonschema:"per-email results in request order"`
}

// QuotaStatus describes sending quota. Providers return a static
// placeholder, it is not live usage data.
type QuotaStatus struct {
	CurrentUsage int    `json:"current_usage" jsonschema:"emails sent in the current period (placeholder)"`
	Limit        int    `json:"limit" jsonschema:"emails allowed per period (placeholder)"`
	ResetTime    string `json:"reset_time,omitempty" jsonschema:"when the quota resets"`
}

// PlaceholderQuota is returned by every provider. The Gmail API offers no
// programmatic quota usage endpoint.
func PlaceholderQuota() QuotaStatus {
	return QuotaStatus{
		CurrentUsage: 0,
		Limit:        500,
		ResetTime:    "Daily reset (not live data)",
	}
}
