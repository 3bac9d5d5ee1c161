package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/gomail.v2"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

// SMTPSender sends emails via SMTP
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	addr   string
}

func NewSMTPSenderFromEnv() (*SMTPSender, error) {
	host := env.GetEnv("SMTP_HOST", "")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST is required for MAIL_DRIVER=smtp")
	}
	port, err := strconv.Atoi(env.GetEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	sender := env.GetEnv("SMTP_SENDER", "")
	if sender == "" {
		sender = defaultSender()
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}
	return NewSMTPSender(host, port, env.GetEnv("SMTP_USERNAME", ""), env.GetEnv("SMTP_PASSWORD", ""), sender), nil
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		addr:   fmt.Sprintf("%s:%d", host, port),
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) (Result, error) {
	if err := validate(msg); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m := buildMessage(msg, s.from)
	if err := s.dialer.DialAndSend(m); err != nil {
		log.Errorf("[Mail] SMTP send to %v via %s failed: %v", msg.To, s.addr, err)
		return Result{}, fmt.Errorf("smtp send failed: %w", err)
	}

	log.Infof("[Mail] sent %q to %v via %s", msg.Subject, msg.To, s.addr)
	return Result{MessageID: m.GetHeader("Message-ID")[0], SentAt: time.Now()}, nil
}

func buildMessage(msg Message, defaultFrom string) *gomail.Message {
	from := msg.From
	if from == "" {
		from = defaultFrom
	}
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%d@spin8>", time.Now().UnixNano()))
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetBody("text/html", msg.HTML)
	return m
}
