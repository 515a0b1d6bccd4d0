// Package smtp delivers report mails over SMTP.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/infrastructure/resilience"
)

type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	TLSSkipVerify bool
}

type Options struct {
	ResilienceExecutor *resilience.Executor
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

type Mailer struct {
	cfg      Config
	executor *resilience.Executor
	send     sendFunc
}

func NewMailer(cfg Config) (*Mailer, error) {
	return NewMailerWithOptions(cfg, Options{})
}

func NewMailerWithOptions(cfg Config, options Options) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}

	client, err := mail.NewClient(cfg.Host, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{
		cfg:      cfg,
		executor: options.ResilienceExecutor,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

func clientOptions(cfg Config) []mail.Option {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.TLSSkipVerify {
		opts = append(opts, mail.WithTLSConfig(&tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: true, //nolint:gosec // opt-in for self-signed relays
		}))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return opts
}

// Send delivers one HTML message with a single attachment.
func (m *Mailer) Send(ctx context.Context, recipient, subject, htmlBody string, attachment ports.Attachment) error {
	msg, err := m.buildMessage(recipient, subject, htmlBody, attachment)
	if err != nil {
		return domain.WrapError(domain.ErrDelivery, "build mail", err)
	}

	call := func(ctx context.Context) error {
		return m.send(ctx, msg)
	}
	if m.executor != nil {
		err = m.executor.Execute(ctx, "smtp.send", call, classifySMTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded("smtp send", err)
	}
	return nil
}

func (m *Mailer) buildMessage(recipient, subject, htmlBody string, attachment ports.Attachment) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if len(attachment.Data) > 0 {
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/pdf"
		}
		if err := msg.AttachReader(
			attachment.Filename,
			bytes.NewReader(attachment.Data),
			mail.WithFileContentType(mail.ContentType(contentType)),
		); err != nil {
			return nil, fmt.Errorf("attach %s: %w", attachment.Filename, err)
		}
	}
	return msg, nil
}
