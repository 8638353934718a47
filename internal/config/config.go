// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the emailer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort      = 25
	defaultTransport = TransportSMTP
	defaultLogLevel  = "info"
)

// Transport names accepted in Config.Transport.
const (
	TransportSMTP   = "smtp"
	TransportSES    = "ses"
	TransportStdout = "stdout"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the complete application configuration.
type Config struct {
	// Transport selects the delivery backend: smtp, ses or stdout.
	Transport string        `yaml:"transport"`
	SMTP      SMTPConfig    `yaml:"smtp"`
	Mail      MailConfig    `yaml:"mail"`
	SES       SESConfig     `yaml:"ses"`
	Logging   LoggingConfig `yaml:"logging"`
}

// SMTPConfig holds the relay connection settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`

	ServerName         string `yaml:"tls_server_name"`
	InsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify"`
	CAFile             string `yaml:"tls_ca_file"`
}

// MailConfig holds message defaults.
type MailConfig struct {
	From string   `yaml:"from"`
	To   []string `yaml:"to"`
	Cc   []string `yaml:"cc"`
}

// SESConfig holds AWS SES credentials. Empty keys fall back to the default
// AWS credential chain.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Malformed numeric or boolean variables are an error.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Mail.To = cleanList(cfg.Mail.To)
	cfg.Mail.Cc = cleanList(cfg.Mail.Cc)

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected transport has the settings it needs.
func (c *Config) Validate() error {
	if c.Mail.From == "" {
		return fmt.Errorf("%w: sender address (MAIL_FROM) is required", ErrInvalid)
	}

	switch c.Transport {
	case TransportSMTP:
		if c.SMTP.Host == "" {
			return fmt.Errorf("%w: smtp transport requires MAIL_SERVER", ErrInvalid)
		}
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.SMTP.Port)
		}
		if c.SMTP.Password != "" && c.SMTP.Login == "" {
			return fmt.Errorf("%w: MAIL_PASSWORD set without MAIL_LOGIN", ErrInvalid)
		}
	case TransportSES:
		if c.SES.Region == "" {
			return fmt.Errorf("%w: ses transport requires SES_REGION", ErrInvalid)
		}
		if (c.SES.AccessKeyID == "") != (c.SES.SecretAccessKey == "") {
			return fmt.Errorf("%w: SES_ACCESS_KEY_ID and SES_SECRET_ACCESS_KEY must be set together", ErrInvalid)
		}
	case TransportStdout:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport)
	}
	return nil
}

// AuthEnabled returns true if a login is configured. Credentials are only
// used on STARTTLS connections.
func (c *Config) AuthEnabled() bool {
	return c.SMTP.Login != ""
}

// parsePort reads a decimal port number. Leading zeros are ignored rather than
// read as an octal prefix.
func parsePort(v string) (int, error) {
	s := strings.TrimSpace(v)
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, errors.New("must be a decimal number")
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	return cast.ToIntE(s)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Transport = defaultTransport
	c.SMTP.Port = defaultPort
	c.Logging.Level = defaultLogLevel
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("MAIL_TRANSPORT"); v != "" {
		c.Transport = strings.ToLower(v)
	}

	if v := os.Getenv("MAIL_SERVER"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("MAIL_PORT"); v != "" {
		port, err := parsePort(v)
		if err != nil {
			return fmt.Errorf("invalid MAIL_PORT %q: %w", v, err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("MAIL_TLS"); v != "" {
		on, err := cast.ToBoolE(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid MAIL_TLS %q: %w", v, err)
		}
		c.SMTP.TLS = on
	}
	if v := os.Getenv("MAIL_LOGIN"); v != "" {
		c.SMTP.Login = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("MAIL_TLS_SERVER_NAME"); v != "" {
		c.SMTP.ServerName = v
	}
	if v := os.Getenv("MAIL_TLS_INSECURE_SKIP_VERIFY"); v != "" {
		skip, err := cast.ToBoolE(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid MAIL_TLS_INSECURE_SKIP_VERIFY %q: %w", v, err)
		}
		c.SMTP.InsecureSkipVerify = skip
	}
	if v := os.Getenv("MAIL_TLS_CA_FILE"); v != "" {
		c.SMTP.CAFile = v
	}

	if v := os.Getenv("MAIL_FROM"); v != "" {
		c.Mail.From = v
	}
	if v := os.Getenv("MAIL_TO"); v != "" {
		c.Mail.To = SplitList(v)
	}
	if v := os.Getenv("MAIL_CC"); v != "" {
		c.Mail.Cc = SplitList(v)
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// SplitList splits a comma-separated address list, trimming whitespace and
// dropping empty entries.
func SplitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
