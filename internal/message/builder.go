// Package message builds RFC 5322 messages for providers that accept raw
// MIME input.
package message

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
)

const (
	contentTypeText = `text/plain; charset="UTF-8"`
	contentTypeHTML = `text/html; charset="UTF-8"`
	encodingQP      = "quoted-printable"
)

type htmlConverter interface {
	HTML2Text(raw []byte) (string, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock fixes the Date header source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithBoundary fixes the multipart boundary.
func WithBoundary(boundary string) Option {
	return func(b *Builder) { b.boundary = boundary }
}

// Builder renders mail.EmailMessage values as MIME bytes.
type Builder struct {
	from     string
	conv     htmlConverter
	now      func() time.Time
	boundary string
}

// NewBuilder creates a Builder. from may be empty, Gmail then fills in the
// authenticated account.
func NewBuilder(from string, conv htmlConverter, opts ...Option) *Builder {
	b := &Builder{
		from: from,
		conv: conv,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders msg. Text messages are a single text/plain part, HTML
// messages are multipart/alternative with a plain-text rendering first.
func (b *Builder) Build(msg mail.EmailMessage) ([]byte, error) {
	var buf bytes.Buffer

	if b.from != "" {
		from, err := formatAddressList([]string{b.from})
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		writeHeader(&buf, "From", from)
	}

	to, err := formatAddressList([]string{msg.To})
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	writeHeader(&buf, "To", to)

	if len(msg.CC) > 0 {
		cc, err := formatAddressList(msg.CC)
		if err != nil {
			return nil, fmt.Errorf("cc: %w", err)
		}
		writeHeader(&buf, "Cc", cc)
	}
	if len(msg.BCC) > 0 {
		bcc, err := formatAddressList(msg.BCC)
		if err != nil {
			return nil, fmt.Errorf("bcc: %w", err)
		}
		writeHeader(&buf, "Bcc", bcc)
	}

	writeHeader(&buf, "Subject", mime.QEncoding.Encode("UTF-8", msg.Subject))
	writeHeader(&buf, "Date", b.now().Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")

	if !msg.IsHTML() {
		writeHeader(&buf, "Content-Type", contentTypeText)
		writeHeader(&buf, "Content-Transfer-Encoding", encodingQP)
		buf.WriteString("\r\n")

		if err := writeQP(&buf, msg.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	plain, err := b.conv.HTML2Text([]byte(msg.Body))
	if err != nil {
		return nil, fmt.Errorf("conv.HTML2Text failed: %w", err)
	}

	mw := multipart.NewWriter(&buf)
	if b.boundary != "" {
		if err := mw.SetBoundary(b.boundary); err != nil {
			return nil, fmt.Errorf("mw.SetBoundary failed: %w", err)
		}
	}

	writeHeader(&buf, "Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{
		"boundary": mw.Boundary(),
	}))
	buf.WriteString("\r\n")

	if err := writePart(mw, contentTypeText, plain); err != nil {
		return nil, err
	}
	if err := writePart(mw, contentTypeHTML, msg.Body); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("mw.Close failed: %w", err)
	}

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func writePart(mw *multipart.Writer, contentType, body string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", encodingQP)

	pw, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("mw.CreatePart failed: %w", err)
	}

	return writeQP(pw, body)
}

func writeQP(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("qp.Write failed: %w", err)
	}
	if err := qp.Close(); err != nil {
		return fmt.Errorf("qp.Close failed: %w", err)
	}
	return nil
}

func formatAddressList(addrs []string) (string, error) {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parsed, err := netmail.ParseAddress(a)
		if err != nil {
			return "", fmt.Errorf("mail.ParseAddress(%q) failed: %w", a, err)
		}
		out = append(out, parsed.String())
	}
	return strings.Join(out, ", "), nil
}
