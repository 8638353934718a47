// Package notify sends a single notification email from configuration in one
// call.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/emailer/internal/config"
	"github.com/shineum/emailer/internal/email"
	emailtls "github.com/shineum/emailer/internal/tls"
	"github.com/shineum/emailer/internal/transport"
	"github.com/shineum/emailer/internal/transport/ses"
	"github.com/shineum/emailer/internal/transport/smtp"
	"github.com/shineum/emailer/internal/transport/stdout"
)

// DefaultText is the plain-text alternative used when a request has none.
const DefaultText = "You should not see this text in a MIME aware reader"

// ErrHTMLRequired is returned when a request has no HTML body.
var ErrHTMLRequired = fmt.Errorf("%w: html body is required", email.ErrValidation)

// Request describes one notification.
type Request struct {
	Subject string
	HTML    string
	// Text defaults to DefaultText.
	Text string
	// Recipients default to cfg.Mail.To. Entries may be comma-separated lists.
	Recipients []string
	// Attachment is an optional file path; AttachmentName overrides its
	// displayed filename.
	Attachment     string
	AttachmentName string
}

// Build populates a Message from cfg and req without sending it.
func Build(cfg config.Config, req Request) (*email.Message, error) {
	if req.HTML == "" {
		return nil, ErrHTMLRequired
	}

	m := email.NewMessage()
	if cfg.Mail.From != "" {
		if err := m.SetFrom(cfg.Mail.From); err != nil {
			return nil, err
		}
	}

	recipients := splitAll(req.Recipients)
	if len(recipients) == 0 {
		recipients = splitAll(cfg.Mail.To)
	}
	for _, addr := range recipients {
		if err := m.AddRecipient(addr); err != nil {
			return nil, err
		}
	}

	// Each configured cc address is copied as itself, not as the sender.
	for _, addr := range splitAll(cfg.Mail.Cc) {
		if err := m.AddCc(addr); err != nil {
			return nil, err
		}
	}

	text := req.Text
	if text == "" {
		text = DefaultText
	}
	m.SetSubject(req.Subject)
	m.SetTextBody(text)
	m.SetHTMLBody(req.HTML)
	m.AddAttachment(req.Attachment, req.AttachmentName)

	return m, nil
}

// Send builds a message from cfg and req, composes it and hands it to t.
// The composed envelope is returned on success.
func Send(ctx context.Context, cfg config.Config, t transport.Transport, req Request) (*email.Envelope, error) {
	m, err := Build(cfg, req)
	if err != nil {
		return nil, err
	}

	env, err := email.Compose(m)
	if err != nil {
		return nil, err
	}

	if err := t.Send(ctx, env); err != nil {
		return nil, fmt.Errorf("failed to send via %s: %w", t.Name(), err)
	}

	slog.Info("email sent",
		"transport", t.Name(),
		"from", env.From,
		"recipients", len(env.Recipients),
		"skipped_attachments", len(env.Skipped),
	)
	return env, nil
}

// Transport builds the delivery backend selected by cfg.Transport.
func Transport(ctx context.Context, cfg config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case config.TransportSMTP, "":
		t, err := newSMTP(cfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TransportSES:
		t, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TransportStdout:
		return stdout.New(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func newSMTP(c config.Config) (*smtp.Transport, error) {
	cfg := c.SMTP
	sc := smtp.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		TLS:      cfg.TLS,
		Login:    cfg.Login,
		Password: cfg.Password,
	}

	if cfg.TLS {
		tlsCfg, err := emailtls.ClientConfig(cfg.Host, emailtls.ClientOptions{
			ServerName:         cfg.ServerName,
			CAFile:             cfg.CAFile,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		})
		if err != nil {
			return nil, err
		}
		sc.TLSConfig = tlsCfg
	} else if c.AuthEnabled() {
		slog.Warn("smtp login configured without TLS, credentials will not be sent",
			"host", cfg.Host,
		)
	}

	return smtp.New(sc), nil
}

func splitAll(lists []string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, config.SplitList(l)...)
	}
	return out
}
