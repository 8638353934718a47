package email

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// Envelope is a serialized message together with its SMTP envelope.
type Envelope struct {
	// From is the bare sender address.
	From string
	// Recipients holds the bare addresses of To, Cc and Bcc, in that order.
	Recipients []string
	// Data is the message in MIME wire format with CRLF line endings.
	Data []byte
	// Skipped lists attachments that were left out.
	Skipped []AttachmentSkipped
}

// Compose validates m, resolves its attachments and serializes it.
//
// The body is text/plain, text/html, or a multipart/alternative of both with
// the text part first. Queued attachments wrap the body in multipart/mixed,
// even when every one of them is skipped. Bcc
// addresses appear in Recipients but never in Data.
func Compose(m *Message) (*Envelope, error) {
	text, hasText := m.TextBody()
	html, hasHTML := m.HTMLBody()
	if !hasText && !hasHTML {
		return nil, ErrNoBody
	}
	if len(m.to) == 0 {
		return nil, ErrNoRecipients
	}
	if m.from == "" {
		return nil, ErrNoSender
	}

	msg := gomail.NewMessage()
	switch {
	case hasText && hasHTML:
		msg.SetBody("text/plain", text)
		msg.AddAlternative("text/html", html)
	case hasText:
		msg.SetBody("text/plain", text)
	default:
		msg.SetBody("text/html", html)
	}

	env := &Envelope{}
	attached := 0
	for _, ref := range m.attachments {
		res, err := ref.Resolve()
		if err != nil {
			return nil, err
		}
		if res.Status != Found {
			skip := AttachmentSkipped{Path: ref.Path, Status: res.Status}
			slog.Warn("skipping attachment",
				"path", ref.Path,
				"reason", res.Status.String(),
			)
			env.Skipped = append(env.Skipped, skip)
			continue
		}
		attach(msg, res)
		attached++
	}

	msg.SetHeader("Subject", m.subject)
	msg.SetHeader("From", formatAddress(msg, m.from))
	msg.SetHeader("To", formatAddresses(msg, m.to)...)
	if len(m.cc) > 0 {
		msg.SetHeader("Cc", formatAddresses(msg, m.cc)...)
	}

	from, _ := EnvelopeAddress(m.from)
	msg.SetHeader("Message-Id", messageID(from))

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	data := buf.Bytes()
	if len(m.attachments) > 0 && attached == 0 {
		wrapped, err := wrapMixed(data)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize message: %w", err)
		}
		data = wrapped
	}

	env.From = from
	env.Data = data
	for _, addr := range m.Recipients() {
		spec, _ := EnvelopeAddress(addr)
		env.Recipients = append(env.Recipients, spec)
	}
	return env, nil
}

// bodyHeaders are the top-level fields that describe the body rather than the
// message, and move into the inner part when the body is wrapped.
var bodyHeaders = map[string]bool{
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
}

// wrapMixed puts the body of a serialized message inside a multipart/mixed
// container as its only part. gomail only opens the mixed container once a
// file is attached.
func wrapMixed(data []byte) ([]byte, error) {
	end := bytes.Index(data, []byte("\r\n\r\n"))
	if end < 0 {
		return nil, fmt.Errorf("message has no header terminator")
	}
	head, body := string(data[:end]), data[end+4:]

	var outer []string
	inner := textproto.MIMEHeader{}
	for _, field := range splitHeaderFields(head) {
		name, value, _ := strings.Cut(field, ":")
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
		if bodyHeaders[key] {
			inner.Add(key, strings.TrimSpace(strings.ReplaceAll(value, "\r\n", "")))
			continue
		}
		outer = append(outer, field)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, field := range outer {
		buf.WriteString(field + "\r\n")
	}
	buf.WriteString("Content-Type: " + mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()}) + "\r\n\r\n")

	pw, err := mw.CreatePart(inner)
	if err != nil {
		return nil, err
	}
	if _, err := pw.Write(body); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// splitHeaderFields splits a header block into fields, keeping folded
// continuation lines with the field they belong to.
func splitHeaderFields(head string) []string {
	var fields []string
	for _, line := range strings.Split(head, "\r\n") {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(fields) > 0 {
			fields[len(fields)-1] += "\r\n" + line
			continue
		}
		fields = append(fields, line)
	}
	return fields
}

// attach adds a resolved file as an attachment part. Text parts are labelled
// utf-8; every attachment body is base64 encoded.
func attach(msg *gomail.Message, res ResolvedAttachment) {
	typeParams := map[string]string{"name": res.Filename}
	if strings.HasPrefix(res.ContentType, "text/") {
		typeParams["charset"] = "utf-8"
	}
	content := res.Content

	msg.Attach(res.Filename,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}),
		gomail.SetHeader(map[string][]string{
			"Content-Type":        {mime.FormatMediaType(res.ContentType, typeParams)},
			"Content-Disposition": {mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename})},
		}),
	)
}

func formatAddresses(msg *gomail.Message, addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, formatAddress(msg, addr))
	}
	return out
}

// formatAddress renders a validated address for a header, quoting or
// encoding the display name when present.
func formatAddress(msg *gomail.Message, addr string) string {
	name, spec, bracketed := splitAddress(addr)
	name = strings.TrimSpace(name)
	if !bracketed || name == "" {
		return spec
	}
	return msg.FormatAddress(spec, name)
}

func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndexByte(from, '@'); at >= 0 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
