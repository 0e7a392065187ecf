// Package logging holds slog construction and attribute helpers used across
// the server.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys.
const (
	KeyTool       = "tool"
	KeyProvider   = "provider"
	KeyRecipient  = "recipient"
	KeyError      = "error"
	KeyEmailIndex = "email_index"
	KeyDuration   = "duration"
)

// New builds a logger writing to w. format is "json" or "text".
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Provider returns a slog attribute for the mail provider name.
func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

// Err returns a slog attribute for an error. A nil error yields an empty
// group, which slog omits.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Recipient returns a slog attribute with the hashed recipient address, so
// log lines can be correlated without storing addresses.
func Recipient(addr string) slog.Attr {
	return slog.String(KeyRecipient, AnonymizeEmail(addr))
}

// AnonymizeEmail returns a stable, non-reversible tag for an address.
func AnonymizeEmail(addr string) string {
	if addr == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(addr))))
	return "rcpt:" + hex.EncodeToString(hash[:8])
}
