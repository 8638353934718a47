package email

import (
	"errors"
	"strings"
	"testing"
)

func TestSetFrom(t *testing.T) {
	t.Parallel()

	m := NewMessage()
	if err := m.SetFrom("first@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SetFrom("Second <second@example.com>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.From(); got != "Second <second@example.com>" {
		t.Errorf("From(): got %q, want overwritten value", got)
	}

	err := m.SetFrom("not-an-email")
	if err == nil {
		t.Fatal("expected error for invalid sender")
	}
	if got := m.From(); got != "Second <second@example.com>" {
		t.Errorf("From() changed after rejected address: %q", got)
	}

	var addrErr *InvalidAddressError
	if !errors.As(err, &addrErr) {
		t.Fatalf("expected *InvalidAddressError, got %T", err)
	}
	if addrErr.Field != "From" || addrErr.Address != "not-an-email" {
		t.Errorf("unexpected error fields: %+v", addrErr)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("address error should match ErrValidation")
	}
}

func TestAddRecipients(t *testing.T) {
	t.Parallel()

	m := NewMessage()
	for _, addr := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		if err := m.AddRecipient(addr); err != nil {
			t.Fatalf("AddRecipient(%q): %v", addr, err)
		}
	}
	if err := m.AddCc("c@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := m.AddBcc("d@example.com"); err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(m.To(), ","); got != "a@example.com,b@example.com,a@example.com" {
		t.Errorf("To(): got %q, duplicates must be kept in order", got)
	}
	if got := strings.Join(m.Recipients(), ","); got != "a@example.com,b@example.com,a@example.com,c@example.com,d@example.com" {
		t.Errorf("Recipients(): got %q", got)
	}
}

func TestAddRecipients_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		add   func(m *Message, addr string) error
		field string
	}{
		{"to", (*Message).AddRecipient, "To"},
		{"cc", (*Message).AddCc, "Cc"},
		{"bcc", (*Message).AddBcc, "Bcc"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMessage()
			err := tt.add(m, "Bad@Example.com")
			var addrErr *InvalidAddressError
			if !errors.As(err, &addrErr) {
				t.Fatalf("expected *InvalidAddressError, got %v", err)
			}
			if addrErr.Field != tt.field {
				t.Errorf("Field: got %q, want %q", addrErr.Field, tt.field)
			}
			if len(m.Recipients()) != 0 {
				t.Error("invalid address must not be stored")
			}
		})
	}
}

func TestInvalidAddressError_Message(t *testing.T) {
	t.Parallel()

	if got := (&InvalidAddressError{Field: "To", Address: "x"}).Error(); got != `invalid email address "x"` {
		t.Errorf("To message: got %q", got)
	}
	if got := (&InvalidAddressError{Field: "Bcc", Address: "x"}).Error(); got != `invalid Bcc email address "x"` {
		t.Errorf("Bcc message: got %q", got)
	}
}

func TestClearRecipients(t *testing.T) {
	t.Parallel()

	m := NewMessage()
	_ = m.AddRecipient("a@example.com")
	_ = m.AddCc("b@example.com")
	_ = m.AddBcc("c@example.com")

	m.ClearRecipients()

	if len(m.To()) != 0 || len(m.Cc()) != 0 || len(m.Bcc()) != 0 {
		t.Errorf("lists not cleared: to=%v cc=%v bcc=%v", m.To(), m.Cc(), m.Bcc())
	}
}

func TestBodies(t *testing.T) {
	t.Parallel()

	m := NewMessage()
	if _, ok := m.TextBody(); ok {
		t.Error("text body should start unset")
	}
	if _, ok := m.HTMLBody(); ok {
		t.Error("html body should start unset")
	}

	m.SetTextBody("")
	if body, ok := m.TextBody(); !ok || body != "" {
		t.Errorf("TextBody(): got (%q, %v), want empty but set", body, ok)
	}

	m.SetHTMLBody("<p>one</p>")
	m.SetHTMLBody("<p>two</p>")
	if body, _ := m.HTMLBody(); body != "<p>two</p>" {
		t.Errorf("HTMLBody(): got %q, want overwritten value", body)
	}
}

func TestAttachments(t *testing.T) {
	t.Parallel()

	m := NewMessage()
	m.AddAttachment("", "ignored.txt")
	m.AddAttachment("/does/not/exist.pdf", "")
	m.AddAttachment("/tmp/report.csv", "q3.csv")

	got := m.Attachments()
	if len(got) != 2 {
		t.Fatalf("Attachments(): got %d, want 2", len(got))
	}
	if got[0].Path != "/does/not/exist.pdf" || got[0].Name != "" {
		t.Errorf("first attachment: got %+v", got[0])
	}
	if got[1].DisplayName() != "q3.csv" {
		t.Errorf("second attachment display name: got %q", got[1].DisplayName())
	}

	m.ClearAttachments()
	if len(m.Attachments()) != 0 {
		t.Error("attachments not cleared")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	m := NewMessage()
	_ = m.AddRecipient("a@example.com")
	to := m.To()
	to[0] = "mutated@example.com"
	if m.To()[0] != "a@example.com" {
		t.Error("To() exposed internal slice")
	}
}
