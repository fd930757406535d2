package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mercadito-api/config"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

type SMTPDispatcher struct {
	host string
	from string

	// send is the client's DialAndSendWithContext outside tests.
	send func(ctx context.Context, msgs ...*mail.Msg) error
}

func NewSMTPDispatcher(cfg config.MailConfig) (*SMTPDispatcher, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPDispatcher{
		host: cfg.Host,
		from: cfg.From,
		send: client.DialAndSendWithContext,
	}, nil
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Destinatario) == "" {
		return errors.New("smtp: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := buildMessage(d.from, d.host, msg, time.Now())
	if err != nil {
		return err
	}
	if err := d.send(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.Destinatario, err)
	}
	return nil
}

// buildMessage leaves header encoding to go-mail, so accented subjects go
// out as RFC 2047 encoded words.
func buildMessage(from, host string, msg Message, now time.Time) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("smtp from %q: %w", from, err)
	}
	if err := m.To(msg.Destinatario); err != nil {
		return nil, fmt.Errorf("smtp to %q: %w", msg.Destinatario, err)
	}
	m.Subject(msg.Asunto)
	m.SetDateWithValue(now)
	m.SetMessageIDWithValue(uuid.NewString() + "@" + host)
	m.SetBodyString(mail.TypeTextPlain, msg.Cuerpo)
	return m, nil
}
