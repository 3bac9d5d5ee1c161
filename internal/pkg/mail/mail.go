package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

// Message is one outgoing HTML e-mail.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Result identifies a delivered (or queued) message.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
	Name() string
}

func validate(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: no recipient")
	}
	for _, to := range msg.To {
		if !strings.Contains(to, "@") {
			return fmt.Errorf("mail: invalid recipient %q", to)
		}
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("mail: empty subject")
	}
	return nil
}

func defaultSender() string {
	sender := env.GetEnv("SMTP_SENDER", "")
	if sender == "" {
		sender = env.GetEnv("MAIL_FROM", "")
	}
	if sender == "" {
		sender = "no-reply@localhost"
	}
	return sender
}

// NewSenderFromEnv picks the driver named by MAIL_DRIVER (smtp, resend, noop).
func NewSenderFromEnv() (Sender, error) {
	switch driver := strings.ToLower(env.GetEnv("MAIL_DRIVER", "noop")); driver {
	case "smtp":
		return NewSMTPSenderFromEnv()
	case "resend":
		key := env.GetEnv("RESEND_API_KEY", "")
		if key == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required for MAIL_DRIVER=resend")
		}
		return NewResendSender(key, defaultSender()), nil
	case "noop", "":
		return NewNoopSender(), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_DRIVER %q", driver)
	}
}
