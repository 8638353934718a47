// Package smtp implements a Transport that relays messages through one SMTP
// session, with optional STARTTLS and AUTH PLAIN.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/shineum/emailer/internal/email"
)

// DefaultPort is used when Config.Port is zero.
const DefaultPort = 25

// defaultDialTimeout bounds the TCP connect when the caller's context has no
// deadline of its own.
const defaultDialTimeout = 30 * time.Second

// ErrAuthentication is matched by errors from a relay that rejected the
// configured login.
var ErrAuthentication = errors.New("smtp authentication failed")

// Stage names the step of the SMTP conversation that failed.
type Stage string

const (
	StageDial     Stage = "dial"
	StageHello    Stage = "hello"
	StageStartTLS Stage = "starttls"
	StageAuth     Stage = "auth"
	StageMail     Stage = "mail"
	StageRcpt     Stage = "rcpt"
	StageData     Stage = "data"
	StageQuit     Stage = "quit"
)

// TransportError reports a failed delivery. Err is the underlying network
// error or *gosmtp.SMTPError.
type TransportError struct {
	Stage Stage
	Addr  string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp %s %s: %v", e.Stage, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrAuthentication when the relay answered the AUTH exchange
// with an error reply.
func (e *TransportError) Is(target error) bool {
	if target != ErrAuthentication || e.Stage != StageAuth {
		return false
	}
	var smtpErr *gosmtp.SMTPError
	return errors.As(e.Err, &smtpErr)
}

// Config holds the connection settings for one relay.
type Config struct {
	Host string
	// Port defaults to DefaultPort.
	Port int
	// TLS upgrades the session with STARTTLS and then authenticates with
	// Login and Password. Without TLS no authentication is attempted.
	TLS      bool
	Login    string
	Password string
	// TLSConfig overrides the client TLS settings. When nil, the relay
	// certificate is verified against Host.
	TLSConfig *tls.Config
	// LocalName is sent in EHLO. Defaults to "localhost".
	LocalName string
	// DialTimeout bounds the TCP connect.
	DialTimeout time.Duration
}

// Transport relays envelopes to a single SMTP server.
type Transport struct {
	cfg Config
}

// New creates a Transport for cfg.
func New(cfg Config) *Transport {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Transport{cfg: cfg}
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "smtp"
}

// Addr returns the host:port being dialed.
func (t *Transport) Addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

// Send opens a session, optionally upgrades and authenticates, and transmits
// env to every recipient. Any failure aborts the whole send.
func (t *Transport) Send(ctx context.Context, env *email.Envelope) error {
	addr := t.Addr()
	fail := func(stage Stage, err error) error {
		return &TransportError{Stage: stage, Addr: addr, Err: err}
	}

	dialer := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fail(StageDial, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := gosmtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fail(StageDial, err)
	}
	defer c.Close()

	if t.cfg.LocalName != "" {
		if err := c.Hello(t.cfg.LocalName); err != nil {
			return fail(StageHello, err)
		}
	}

	if t.cfg.TLS {
		if err := c.StartTLS(t.tlsConfig()); err != nil {
			return fail(StageStartTLS, err)
		}
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Login, t.cfg.Password)); err != nil {
			return fail(StageAuth, err)
		}
	}

	if err := c.Mail(env.From, nil); err != nil {
		return fail(StageMail, err)
	}
	for _, rcpt := range env.Recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fail(StageRcpt, fmt.Errorf("recipient %s: %w", rcpt, err))
		}
	}

	w, err := c.Data()
	if err != nil {
		return fail(StageData, err)
	}
	if _, err := w.Write(env.Data); err != nil {
		w.Close()
		return fail(StageData, err)
	}
	if err := w.Close(); err != nil {
		return fail(StageData, err)
	}

	if err := c.Quit(); err != nil {
		return fail(StageQuit, err)
	}

	slog.Debug("message relayed",
		"addr", addr,
		"tls", t.cfg.TLS,
		"recipients", len(env.Recipients),
		"bytes", len(env.Data),
	)
	return nil
}

func (t *Transport) tlsConfig() *tls.Config {
	if t.cfg.TLSConfig != nil {
		return t.cfg.TLSConfig.Clone()
	}
	return &tls.Config{
		ServerName: t.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
}
