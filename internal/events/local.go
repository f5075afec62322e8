// AngelaMos | 2026
// local.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalBus delivers events in process when no broker is configured.
// Handlers run on the publisher's goroutine; within a queue group only the
// first subscriber receives a message.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string][]func(*Message)
	queues map[string]map[string]func(*Message)
	closed bool
	logger *slog.Logger
}

func NewLocalBus(logger *slog.Logger) *LocalBus {
	return &LocalBus{
		subs:   make(map[string][]func(*Message)),
		queues: make(map[string]map[string]func(*Message)),
		logger: logger,
	}
}

func (b *LocalBus) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("publish %s: bus closed", subject)
	}
	handlers := make([]func(*Message), 0, len(b.subs[subject])+len(b.queues[subject]))
	handlers = append(handlers, b.subs[subject]...)
	for _, h := range b.queues[subject] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.DebugContext(ctx, "publishing event",
		"subject", subject,
		"subscribers", len(handlers),
	)

	for _, h := range handlers {
		h(&Message{
			Subject:   subject,
			Data:      payload,
			Timestamp: time.Now(),
			ID:        uuid.NewString(),
		})
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[subject] = append(b.subs[subject], handler)
	return nil
}

func (b *LocalBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	groups, ok := b.queues[subject]
	if !ok {
		groups = make(map[string]func(*Message))
		b.queues[subject] = groups
	}
	if _, taken := groups[queue]; !taken {
		groups[queue] = handler
	}
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	clear(b.subs)
	clear(b.queues)
	return nil
}

var _ Bus = (*LocalBus)(nil)
