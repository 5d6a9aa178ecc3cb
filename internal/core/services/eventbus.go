package services

import (
	"log/slog"
	"sync"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

type EventType string

const (
	EventTypeTurn     EventType = "turn"
	EventTypeToolCall EventType = "tool_call"
	EventTypeFallback EventType = "fallback"
	EventTypeDone     EventType = "done"
)

type Event struct {
	ConversationID domain.ConversationID
	Type           EventType
	Data           string // JSON payload or raw text
	Timestamp      int64
}

// EventBus fans reasoning-loop progress out to SSE subscribers, keyed by
// conversation.
type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[domain.ConversationID][]chan Event
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[domain.ConversationID][]chan Event),
	}
}

// Subscribe returns a channel that receives events for one conversation.
func (b *EventBus) Subscribe(id domain.ConversationID) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100) // Buffer to prevent blocking publisher
	b.subs[id] = append(b.subs[id], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subs[id]
		for i, sub := range subscribers {
			if sub == ch {
				close(ch)
				b.subs[id] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(b.subs[id]) == 0 {
			delete(b.subs, id)
		}
	}

	return ch, unsub
}

// Publish sends an event to all subscribers of the conversation.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers, ok := b.subs[e.ConversationID]
	if !ok {
		return
	}

	for _, ch := range subscribers {
		select {
		case ch <- e:
		default:
			// Full channel: drop rather than block the reasoning loop.
			b.logger.Warn("event bus channel full, dropping event",
				"conversation_id", e.ConversationID)
		}
	}
}
