package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// Message is a rendered email ready to hand to a Sender.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through an authenticated SMTP relay.
type SMTPSender struct {
	cfg    config.SMTPConfig
	dialer func(msg *mail.Msg) error
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp from address is required")
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build email")
	}
	if s.dialer != nil {
		return s.dialer(m)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "smtp client")
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "smtp send")
	}
	return nil
}

func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("recipient is required")
	}
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, err
	}
	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, err
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

// LogSender stands in when SMTP is not configured; it only logs.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
		s.logg.Info(ctx, "email delivery skipped: smtp disabled")
	}
	return nil
}

// NewSender picks SMTP when configured and the logging fallback otherwise.
func NewSender(cfg config.SMTPConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLogSender(logg), nil
	}
	return NewSMTPSender(cfg)
}
