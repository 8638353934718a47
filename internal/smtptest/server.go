// Package smtptest runs an in-process SMTP relay that records every message
// it accepts, so transports can be exercised end to end in tests.
package smtptest

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"testing"

	gosmtp "github.com/emersion/go-smtp"

	emailtls "github.com/shineum/emailer/internal/tls"
)

// maxMessageBytes caps what the relay will accept in DATA.
const maxMessageBytes = 25 << 20

// Delivery is one message as the relay saw it.
type Delivery struct {
	From       string
	Recipients []string
	Data       []byte
	// Username is set when the client authenticated.
	Username string
	// TLS reports whether the session was upgraded before DATA.
	TLS bool
}

// Options configures the relay.
type Options struct {
	// StartTLS advertises STARTTLS with a self-signed certificate.
	StartTLS bool
	// Username and Password are the only accepted credentials. When empty,
	// any credentials are rejected and anonymous submission is allowed.
	Username string
	Password string
	// RejectRcpt makes RCPT TO fail for this address.
	RejectRcpt string
}

// Server is a running relay.
type Server struct {
	srv  *gosmtp.Server
	ln   net.Listener
	cert *tls.Certificate

	mu         sync.Mutex
	deliveries []Delivery
}

// Start launches a relay on a loopback port and stops it when the test ends.
func Start(t testing.TB, opts Options) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtptest: listen: %v", err)
	}

	s := &Server{ln: ln}
	be := &backend{server: s, opts: opts}

	srv := gosmtp.NewServer(be)
	srv.Domain = "localhost"
	srv.MaxMessageBytes = maxMessageBytes
	srv.AllowInsecureAuth = false
	srv.ErrorLog = log.New(io.Discard, "", 0)

	if opts.StartTLS {
		cert, err := emailtls.GenerateSelfSignedCert()
		if err != nil {
			t.Fatalf("smtptest: generate cert: %v", err)
		}
		s.cert = cert
		srv.TLSConfig = emailtls.ServerConfig(cert)
	}
	s.srv = srv

	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() { srv.Close() })
	return s
}

// Host returns the loopback IP the relay listens on.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the relay's TCP port.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// ClientTLSConfig returns a client config that trusts the relay certificate.
// It is nil when StartTLS is off.
func (s *Server) ClientTLSConfig() *tls.Config {
	if s.cert == nil {
		return nil
	}
	pool := x509.NewCertPool()
	if leaf, err := x509.ParseCertificate(s.cert.Certificate[0]); err == nil {
		pool.AddCert(leaf)
	}
	return &tls.Config{
		RootCAs:    pool,
		ServerName: s.Host(),
		MinVersion: tls.VersionTLS12,
	}
}

// CertPEM returns the relay certificate in PEM form, for use as a CA file.
// It is nil when StartTLS is off.
func (s *Server) CertPEM() []byte {
	if s.cert == nil {
		return nil
	}
	return emailtls.CertPEM(s.cert)
}

// Deliveries returns a copy of every message accepted so far.
func (s *Server) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

func (s *Server) record(d Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, d)
}

type backend struct {
	server *Server
	opts   Options
}

func (be *backend) Login(state *gosmtp.ConnectionState, username, password string) (gosmtp.Session, error) {
	if be.opts.Username == "" || username != be.opts.Username || password != be.opts.Password {
		return nil, &gosmtp.SMTPError{
			Code:         535,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 8},
			Message:      "Authentication credentials invalid",
		}
	}
	return be.newSession(state, username), nil
}

func (be *backend) AnonymousLogin(state *gosmtp.ConnectionState) (gosmtp.Session, error) {
	if be.opts.Username != "" {
		return nil, gosmtp.ErrAuthRequired
	}
	return be.newSession(state, ""), nil
}

func (be *backend) newSession(state *gosmtp.ConnectionState, username string) *session {
	return &session{
		backend: be,
		current: Delivery{Username: username, TLS: state != nil && state.TLS.HandshakeComplete},
	}
}

type session struct {
	backend *backend
	current Delivery
}

func (s *session) Reset() {
	s.current = Delivery{Username: s.current.Username, TLS: s.current.TLS}
}

func (s *session) Logout() error { return nil }

func (s *session) Mail(from string, _ gosmtp.MailOptions) error {
	s.current.From = from
	return nil
}

func (s *session) Rcpt(to string) error {
	if to == s.backend.opts.RejectRcpt {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "No such user",
		}
	}
	s.current.Recipients = append(s.current.Recipients, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(s.current.Recipients) == 0 {
		return errors.New("no recipients")
	}
	d := s.current
	d.Data = data
	s.backend.server.record(d)
	return nil
}
