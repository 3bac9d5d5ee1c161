package mail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// NoopSender logs messages instead of delivering them. Sent messages are kept
// for inspection in development.
type NoopSender struct {
	mu   sync.Mutex
	sent []Message
}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) Name() string { return "noop" }

func (s *NoopSender) Send(_ context.Context, msg Message) (Result, error) {
	if err := validate(msg); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	log.Infof("[Mail] noop send %q to %v", msg.Subject, msg.To)
	return Result{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}

// Sent returns a copy of every message passed to Send.
func (s *NoopSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
