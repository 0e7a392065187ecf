// Package dispatch sends a list of messages through a mail client in paced
// batches and aggregates the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hal9000y/gmail-bulk-mcp/internal/instrumentation"
	"github.com/hal9000y/gmail-bulk-mcp/internal/logging"
	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

var (
	// ErrInvalidBatchSize is returned when the batch size is below 1.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
	// ErrInvalidDelay is returned when the pacing delay is negative.
	ErrInvalidDelay = errors.New("delay between batches must not be negative")
)

// DefaultSendTimeout bounds one provider call.
const DefaultSendTimeout = time.Minute

// maxDuration is the largest representable time.Duration.
const maxDuration = time.Duration(math.MaxInt64)

type sender interface {
	SendEmail(ctx context.Context, msg mail.EmailMessage) (string, error)
}

type recorder interface {
	RecordEmailSend(ctx context.Context, provider, status string, d time.Duration)
	RecordPacingDelay(ctx context.Context)
}

// WaitFunc blocks for d, returning early with ctx.Err() when ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWait replaces the pacing wait, tests use it to observe delays.
func WithWait(wait WaitFunc) Option {
	return func(d *Dispatcher) { d.wait = wait }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m recorder) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithSendTimeout bounds a single provider call. Zero means no bound.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.sendTimeout = timeout }
}

// WithProviderName sets the provider label used in metrics and logs.
func WithProviderName(name string) Option {
	return func(d *Dispatcher) { d.provider = name }
}

// Dispatcher is stateless between calls and safe for concurrent use.
type Dispatcher struct {
	wait        WaitFunc
	metrics     recorder
	logger      *slog.Logger
	provider    string
	sendTimeout time.Duration
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		wait:        Sleep,
		metrics:     &instrumentation.Metrics{},
		logger:      logging.Discard(),
		provider:    "unknown",
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends msgs in order, one attempt each, waiting delay before the
// first message of every batch after the first. Per-message failures are
// recorded in the response and never abort the loop. Once ctx is done the
// remaining messages are recorded as not sent, so the response always has
// one result per message.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	client sender,
	msgs []mail.EmailMessage,
	batchSize int,
	delay time.Duration,
) (mail.BulkEmailResponse, error) {
	if batchSize < 1 {
		return mail.BulkEmailResponse{}, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	if delay < 0 {
		return mail.BulkEmailResponse{}, fmt.Errorf("%w: got %s", ErrInvalidDelay, delay)
	}

	resp := mail.BulkEmailResponse{
		TotalEmails: len(msgs),
		Results:     make([]mail.EmailSendResult, 0, len(msgs)),
	}

	var stopErr error

	for i, msg := range msgs {
		if stopErr == nil && i > 0 && i%batchSize == 0 {
			d.logger.DebugContext(ctx, "pacing before next batch",
				slog.Int("batch", i/batchSize),
				slog.Duration(logging.KeyDuration, delay),
			)
			d.metrics.RecordPacingDelay(ctx)

			if err := d.wait(ctx, delay); err != nil {
				stopErr = err
			}
		}
		if stopErr == nil {
			stopErr = ctx.Err()
		}

		var res mail.EmailSendResult
		if stopErr != nil {
			res = mail.NewErrorResult(i, msg.To, fmt.Errorf("not sent: %w", stopErr))
		} else {
			res = d.SendOne(ctx, client, i, msg)
		}

		if res.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, res)
	}

	if stopErr != nil {
		d.logger.WarnContext(ctx, "dispatch interrupted",
			slog.Int("sent", resp.Successful),
			slog.Int("total", resp.TotalEmails),
			logging.Err(stopErr),
		)
	}

	return resp, nil
}

// SendOne makes a single send attempt and maps the outcome onto a result
// with the given index. Cancelling ctx does not interrupt a send in
// flight: the provider may already have accepted the message, so the call
// runs to completion (or the send timeout) and its real outcome is recorded.
func (d *Dispatcher) SendOne(ctx context.Context, client sender, index int, msg mail.EmailMessage) mail.EmailSendResult {
	sendCtx := context.WithoutCancel(ctx)
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, d.sendTimeout)
		defer cancel()
	}

	start := time.Now()
	id, err := client.SendEmail(sendCtx, msg)
	elapsed := time.Since(start)

	if err != nil {
		d.metrics.RecordEmailSend(ctx, d.provider, instrumentation.StatusError, elapsed)
		d.logger.InfoContext(ctx, "email send failed",
			slog.Int(logging.KeyEmailIndex, index),
			logging.Recipient(msg.To),
			logging.Provider(d.provider),
			logging.Err(err),
		)
		return mail.NewErrorResult(index, msg.To, err)
	}

	d.metrics.RecordEmailSend(ctx, d.provider, instrumentation.StatusSuccess, elapsed)
	d.logger.DebugContext(ctx, "email sent",
		slog.Int(logging.KeyEmailIndex, index),
		logging.Recipient(msg.To),
		logging.Provider(d.provider),
		slog.String("message_id", id),
	)

	return mail.NewSuccessResult(index, msg.To, id)
}

// Sleep is the default WaitFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SecondsToDuration converts a float number of seconds. Values beyond the
// time.Duration range saturate instead of wrapping around.
func SecondsToDuration(secs float64) time.Duration {
	ns := secs * float64(time.Second)
	switch {
	case math.IsNaN(ns):
		return 0
	case ns >= float64(math.MaxInt64):
		return maxDuration
	case ns <= float64(math.MinInt64):
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ns)
}
