// Package main is the entry point for the emailer command.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/shineum/emailer/internal/config"
	"github.com/shineum/emailer/internal/email"
	"github.com/shineum/emailer/internal/notify"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file, overridden by environment variables",
	}
	subjectFlag = &cli.StringFlag{
		Name:  "subject",
		Usage: "message subject",
	}
	htmlFlag = &cli.StringFlag{
		Name:  "html",
		Usage: "HTML body",
	}
	htmlFileFlag = &cli.StringFlag{
		Name:  "html-file",
		Usage: "read the HTML body from a file",
	}
	textFlag = &cli.StringFlag{
		Name:  "text",
		Usage: "plain-text alternative body",
	}
	toFlag = &cli.StringSliceFlag{
		Name:  "to",
		Usage: "recipient address, repeatable (default MAIL_TO)",
	}
	attachFlag = &cli.StringFlag{
		Name:  "attach",
		Usage: "path of a file to attach",
	}
	attachNameFlag = &cli.StringFlag{
		Name:  "attach-name",
		Usage: "filename shown for the attachment",
	}
	transportFlag = &cli.StringFlag{
		Name:  "transport",
		Usage: "delivery backend: smtp, ses or stdout (default MAIL_TRANSPORT)",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "emailer"
	app.Usage = "send one notification email"
	app.Version = version
	app.HideVersion = true
	app.Flags = []cli.Flag{
		configFileFlag,
		subjectFlag,
		htmlFlag,
		htmlFileFlag,
		textFlag,
		toFlag,
		attachFlag,
		attachNameFlag,
		transportFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name:      "validate",
			Usage:     "check addresses against the accepted address grammar",
			ArgsUsage: "<address>...",
			Action:    validate,
		},
		{
			Name:  "version",
			Usage: "print the version",
			Action: func(c *cli.Context) error {
				fmt.Fprintln(c.App.Writer, version)
				return nil
			},
		},
	}
	app.Action = run
	return app
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String(configFileFlag.Name))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return err
	}

	level := cfg.Logging.Level
	if c.Bool(debugFlag.Name) {
		level = "debug"
	}
	setupLogger(level)

	if c.IsSet(transportFlag.Name) {
		cfg.Transport = strings.ToLower(c.String(transportFlag.Name))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	html, err := htmlBody(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tr, err := notify.Transport(ctx, *cfg)
	if err != nil {
		slog.Error("failed to create transport", "transport", cfg.Transport, "error", err)
		return err
	}
	slog.Info("sending email",
		"transport", tr.Name(),
		"auth_enabled", cfg.AuthEnabled(),
		"tls", cfg.SMTP.TLS,
	)

	env, err := notify.Send(ctx, *cfg, tr, notify.Request{
		Subject:        c.String(subjectFlag.Name),
		HTML:           html,
		Text:           c.String(textFlag.Name),
		Recipients:     c.StringSlice(toFlag.Name),
		Attachment:     c.String(attachFlag.Name),
		AttachmentName: c.String(attachNameFlag.Name),
	})
	if err != nil {
		return err
	}

	for _, skip := range env.Skipped {
		fmt.Fprintln(c.App.ErrWriter, skip)
	}
	return nil
}

func htmlBody(c *cli.Context) (string, error) {
	if c.IsSet(htmlFlag.Name) && c.IsSet(htmlFileFlag.Name) {
		return "", errors.New("--html and --html-file are mutually exclusive")
	}
	path := c.String(htmlFileFlag.Name)
	if path == "" {
		return c.String(htmlFlag.Name), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read html file: %w", err)
	}
	return string(data), nil
}

func validate(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("validate: at least one address is required")
	}

	invalid := 0
	for _, addr := range c.Args().Slice() {
		status := "valid"
		if !email.ValidateAddress(addr) {
			status = "invalid"
			invalid++
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", status, addr)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d addresses are invalid", invalid, c.NArg())
	}
	return nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
