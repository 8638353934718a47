// Package email builds outgoing email messages and serializes them to MIME
// wire format.
package email

// Message accumulates the content of one outgoing email. Addresses are
// validated as they are added; completeness is checked by Compose.
//
// A Message is meant to be built by a single caller and composed once. Lists
// are not cleared after Compose.
type Message struct {
	subject     string
	textBody    *string
	htmlBody    *string
	from        string
	to          []string
	cc          []string
	bcc         []string
	attachments []Attachment
}

// NewMessage returns an empty message.
func NewMessage() *Message {
	return &Message{}
}

// SetSubject sets the subject line, replacing any previous value.
func (m *Message) SetSubject(subject string) {
	m.subject = subject
}

// SetFrom sets the sender address.
func (m *Message) SetFrom(addr string) error {
	if !ValidateAddress(addr) {
		return &InvalidAddressError{Field: "From", Address: addr}
	}
	m.from = addr
	return nil
}

// AddRecipient appends addr to the To list. Duplicates are kept.
func (m *Message) AddRecipient(addr string) error {
	if !ValidateAddress(addr) {
		return &InvalidAddressError{Field: "To", Address: addr}
	}
	m.to = append(m.to, addr)
	return nil
}

// AddCc appends addr to the Cc list.
func (m *Message) AddCc(addr string) error {
	if !ValidateAddress(addr) {
		return &InvalidAddressError{Field: "Cc", Address: addr}
	}
	m.cc = append(m.cc, addr)
	return nil
}

// AddBcc appends addr to the Bcc list. Bcc addresses are delivered to but
// never written into the message headers.
func (m *Message) AddBcc(addr string) error {
	if !ValidateAddress(addr) {
		return &InvalidAddressError{Field: "Bcc", Address: addr}
	}
	m.bcc = append(m.bcc, addr)
	return nil
}

// ClearRecipients empties the To, Cc and Bcc lists.
func (m *Message) ClearRecipients() {
	m.to = nil
	m.cc = nil
	m.bcc = nil
}

// SetTextBody sets the text/plain body. An empty string still counts as set.
func (m *Message) SetTextBody(body string) {
	m.textBody = &body
}

// SetHTMLBody sets the text/html body.
func (m *Message) SetHTMLBody(body string) {
	m.htmlBody = &body
}

// AddAttachment queues the file at path. name overrides the filename shown
// to the reader; pass "" to use the base name of path. The file is not
// opened until the message is composed. An empty path is ignored.
func (m *Message) AddAttachment(path, name string) {
	if path == "" {
		return
	}
	m.attachments = append(m.attachments, Attachment{Path: path, Name: name})
}

// ClearAttachments drops all queued attachments.
func (m *Message) ClearAttachments() {
	m.attachments = nil
}

func (m *Message) Subject() string { return m.subject }
func (m *Message) From() string    { return m.from }

func (m *Message) To() []string  { return append([]string(nil), m.to...) }
func (m *Message) Cc() []string  { return append([]string(nil), m.cc...) }
func (m *Message) Bcc() []string { return append([]string(nil), m.bcc...) }

// TextBody returns the text body and whether it was set.
func (m *Message) TextBody() (string, bool) {
	if m.textBody == nil {
		return "", false
	}
	return *m.textBody, true
}

// HTMLBody returns the HTML body and whether it was set.
func (m *Message) HTMLBody() (string, bool) {
	if m.htmlBody == nil {
		return "", false
	}
	return *m.htmlBody, true
}

// Attachments returns the queued attachment references in insertion order.
func (m *Message) Attachments() []Attachment {
	return append([]Attachment(nil), m.attachments...)
}

// Recipients returns every delivery address: To, then Cc, then Bcc.
func (m *Message) Recipients() []string {
	all := make([]string, 0, len(m.to)+len(m.cc)+len(m.bcc))
	all = append(all, m.to...)
	all = append(all, m.cc...)
	return append(all, m.bcc...)
}
