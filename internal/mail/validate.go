package mail

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
)

var (
	// ErrInvalidMessage is returned for messages that cannot be sent as given.
	ErrInvalidMessage = errors.New("invalid email message")
	// ErrInvalidRequest is returned for bulk requests with bad batching parameters.
	ErrInvalidRequest = errors.New("invalid bulk email request")
)

// Validate checks the recipients and format of the message.
func (m EmailMessage) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: to is required", ErrInvalidMessage)
	}
	if err := validateAddress(m.To); err != nil {
		return fmt.Errorf("%w: to: %w", ErrInvalidMessage, err)
	}

	for i, addr := range m.CC {
		if err := validateAddress(addr); err != nil {
			return fmt.Errorf("%w: cc[%d]: %w", ErrInvalidMessage, i, err)
		}
	}
	for i, addr := range m.BCC {
		if err := validateAddress(addr); err != nil {
			return fmt.Errorf("%w: bcc[%d]: %w", ErrInvalidMessage, i, err)
		}
	}

	switch m.Format {
	case "", FormatText, FormatHTML:
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidMessage, m.Format)
	}

	return nil
}

// Validate checks the batching parameters. Messages are validated by the
// provider client at send time so that a bad address fails only its own
// result.
func (r BulkEmailRequest) Validate() error {
	if r.BatchSize != nil && *r.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be at least 1, got %d", ErrInvalidRequest, *r.BatchSize)
	}
	if d := r.DelayBetweenBatches; d != nil {
		if *d < 0 {
			return fmt.Errorf("%w: delay_between_batches must not be negative, got %v", ErrInvalidRequest, *d)
		}
		if math.IsNaN(*d) || *d > MaxDelayBetweenBatches {
			return fmt.Errorf("%w: delay_between_batches must be at most %v seconds, got %v",
				ErrInvalidRequest, MaxDelayBetweenBatches, *d)
		}
	}

	return nil
}

func validateAddress(addr string) error {
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("mail.ParseAddress(%q) failed: %w", addr, err)
	}
	return nil
}
