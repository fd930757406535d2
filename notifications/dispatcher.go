// Package notifications delivers one message to one recipient address.
package notifications

import (
	"context"
	"fmt"

	"mercadito-api/config"

	"github.com/sirupsen/logrus"
)

type Message struct {
	Destinatario string
	Asunto       string
	Cuerpo       string
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg Message) error

func (f DispatcherFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

func New(cfg config.MailConfig, log logrus.FieldLogger) (Dispatcher, error) {
	switch cfg.Mode {
	case "smtp":
		return NewSMTPDispatcher(cfg)
	case "log", "":
		return &LogDispatcher{Log: log}, nil
	}
	return nil, fmt.Errorf("unknown mail mode %q", cfg.Mode)
}

// LogDispatcher writes messages to the log instead of sending them.
type LogDispatcher struct {
	Log logrus.FieldLogger
}

func (d *LogDispatcher) Send(_ context.Context, msg Message) error {
	d.Log.WithFields(logrus.Fields{
		"destinatario": msg.Destinatario,
		"asunto":       msg.Asunto,
	}).Info("Correo enviado (modo log)")
	return nil
}
