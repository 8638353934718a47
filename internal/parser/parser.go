// Package parser reads serialized RFC 5322 messages back into a MIME part
// tree, for dry-run output and for inspecting composed messages.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
)

// Message is a parsed email.
type Message struct {
	Header  mail.Header
	From    string
	To      []string
	Cc      []string
	Subject string
	Root    *Part
}

// Part is one node of the MIME tree. Leaf parts carry decoded Content;
// multipart nodes carry Children.
type Part struct {
	MediaType   string
	Params      map[string]string
	Disposition string
	Filename    string
	Content     []byte
	Children    []*Part
}

// IsMultipart reports whether p is a container.
func (p *Part) IsMultipart() bool {
	return strings.HasPrefix(p.MediaType, "multipart/")
}

// Leaves returns the non-multipart descendants of p in document order.
func (p *Part) Leaves() []*Part {
	if !p.IsMultipart() {
		return []*Part{p}
	}
	var leaves []*Part
	for _, c := range p.Children {
		leaves = append(leaves, c.Leaves()...)
	}
	return leaves
}

// Structure renders the media types of the tree, e.g.
// "multipart/mixed(multipart/alternative(text/plain,text/html),image/png)".
func (p *Part) Structure() string {
	if !p.IsMultipart() {
		return p.MediaType
	}
	kids := make([]string, 0, len(p.Children))
	for _, c := range p.Children {
		kids = append(kids, c.Structure())
	}
	return p.MediaType + "(" + strings.Join(kids, ",") + ")"
}

// TextBody returns the first inline text/plain leaf.
func (m *Message) TextBody() string { return m.firstInline("text/plain") }

// HTMLBody returns the first inline text/html leaf.
func (m *Message) HTMLBody() string { return m.firstInline("text/html") }

// Attachments returns the leaves with an attachment disposition.
func (m *Message) Attachments() []*Part {
	var out []*Part
	for _, leaf := range m.Root.Leaves() {
		if leaf.Disposition == "attachment" {
			out = append(out, leaf)
		}
	}
	return out
}

func (m *Message) firstInline(mediaType string) string {
	for _, leaf := range m.Root.Leaves() {
		if leaf.MediaType == mediaType && leaf.Disposition != "attachment" {
			return string(leaf.Content)
		}
	}
	return ""
}

// Parse parses a raw message.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}

	result := &Message{
		Header:  msg.Header,
		From:    msg.Header.Get("From"),
		Subject: subject,
		To:      parseAddressList(msg.Header.Get("To")),
		Cc:      parseAddressList(msg.Header.Get("Cc")),
	}

	root, err := parsePart(textproto.MIMEHeader(msg.Header), msg.Body)
	if err != nil {
		return nil, err
	}
	result.Root = root
	return result, nil
}

func parsePart(header textproto.MIMEHeader, body io.Reader) (*Part, error) {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		mediaType, params = "text/plain", map[string]string{}
	}

	part := &Part{MediaType: mediaType, Params: params}
	if disp, dparams, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		part.Disposition = disp
		part.Filename = dparams["filename"]
	}
	if part.Filename == "" {
		part.Filename = params["name"]
	}

	if part.IsMultipart() {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("%s part missing boundary", mediaType)
		}
		reader := multipart.NewReader(body, boundary)
		for {
			p, err := reader.NextRawPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read next part: %w", err)
			}
			child, err := parsePart(p.Header, p)
			if err != nil {
				return nil, err
			}
			part.Children = append(part.Children, child)
		}
		return part, nil
	}

	content, err := readContent(header.Get("Content-Transfer-Encoding"), body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s content: %w", mediaType, err)
	}
	part.Content = content
	return part, nil
}

// readContent reads a leaf body, undoing its Content-Transfer-Encoding.
func readContent(encoding string, body io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(body))
	default:
		return io.ReadAll(body)
	}
}

// parseAddressList splits a comma-separated address header into bare
// addresses, falling back to a plain comma split.
func parseAddressList(raw string) []string {
	if raw == "" {
		return nil
	}

	addresses, err := mail.ParseAddressList(raw)
	if err != nil {
		parts := strings.Split(raw, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, addr.Address)
	}
	return result
}
