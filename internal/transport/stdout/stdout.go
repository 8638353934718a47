// Package stdout implements a Transport that prints envelopes instead of
// delivering them.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/emailer/internal/email"
	"github.com/shineum/emailer/internal/parser"
)

// Transport prints messages in a human-readable format.
type Transport struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Transport that writes to the given writer.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Send parses env back and prints its envelope, headers, MIME structure and
// attachments.
func (t *Transport) Send(_ context.Context, env *email.Envelope) error {
	msg, err := parser.Parse(env.Data)
	if err != nil {
		return fmt.Errorf("failed to parse envelope data: %w", err)
	}

	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("Envelope-From: %s\n", env.From))
	b.WriteString(fmt.Sprintf("Envelope-To: %s\n", strings.Join(env.Recipients, ", ")))
	b.WriteString(fmt.Sprintf("From: %s\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(msg.To, ", ")))

	if len(msg.Cc) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\n", strings.Join(msg.Cc, ", ")))
	}

	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
	b.WriteString(fmt.Sprintf("Structure: %s\n", msg.Root.Structure()))
	b.WriteString("Body:\n")

	body := msg.TextBody()
	if body == "" {
		body = msg.HTMLBody()
	}
	b.WriteString(body + "\n")

	if atts := msg.Attachments(); len(atts) > 0 {
		names := make([]string, 0, len(atts))
		for _, att := range atts {
			names = append(names, fmt.Sprintf("%s (%s, %s)", att.Filename, att.MediaType, formatSize(len(att.Content))))
		}
		b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(names, ", ")))
	}

	for _, skip := range env.Skipped {
		b.WriteString(fmt.Sprintf("Skipped: %s\n", skip))
	}

	b.WriteString("========================================\n")

	if _, err := fmt.Fprint(t.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
