package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/emailer/internal/email"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func testEnvelope() *email.Envelope {
	return &email.Envelope{
		From:       "sender@example.com",
		Recipients: []string{"to@example.com", "cc@example.com", "bcc@example.com"},
		Data:       []byte("From: sender@example.com\r\nTo: to@example.com\r\nSubject: hi\r\n\r\nbody\r\n"),
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient(&mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_RawMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient(mock)
	env := testEnvelope()

	if err := p.Send(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
	input := mock.lastInput
	if got := *input.FromEmailAddress; got != "sender@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "sender@example.com")
	}
	if input.Content.Simple != nil {
		t.Error("expected raw content, got simple")
	}
	if input.Content.Raw == nil {
		t.Fatal("expected raw content, got nil")
	}
	if string(input.Content.Raw.Data) != string(env.Data) {
		t.Errorf("Raw.Data: got %q, want %q", input.Content.Raw.Data, env.Data)
	}
}

func TestSend_DestinationCarriesBcc(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient(mock)

	if err := p.Send(context.Background(), testEnvelope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dest := mock.lastInput.Destination
	if dest == nil {
		t.Fatal("Destination is nil")
	}
	got := strings.Join(dest.ToAddresses, ",")
	if got != "to@example.com,cc@example.com,bcc@example.com" {
		t.Errorf("ToAddresses: got %q", got)
	}
	if len(dest.BccAddresses) != 0 || len(dest.CcAddresses) != 0 {
		t.Error("expected all envelope recipients in ToAddresses only")
	}
}

func TestSend_NoRetryOnError(t *testing.T) {
	t.Parallel()

	apiErr := errors.New("throttled")
	mock := &mockSESClient{
		sendFn: func(_ context.Context, _ *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, apiErr
		},
	}
	p := NewWithClient(mock)

	err := p.Send(context.Background(), testEnvelope())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, apiErr) {
		t.Errorf("expected wrapped API error, got %v", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}
