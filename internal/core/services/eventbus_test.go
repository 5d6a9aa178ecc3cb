package services

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *EventBus {
	return NewEventBus(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestEventBus_PublishReachesSubscriber(t *testing.T) {
	bus := newTestBus()
	ch, unsub := bus.Subscribe("conv-1")
	defer unsub()

	bus.Publish(Event{ConversationID: "conv-1", Type: EventTypeTurn, Data: `{"turn":1}`})

	select {
	case e := <-ch:
		assert.Equal(t, EventTypeTurn, e.Type)
		assert.Equal(t, `{"turn":1}`, e.Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_IsolatedByConversation(t *testing.T) {
	bus := newTestBus()
	ch, unsub := bus.Subscribe("conv-1")
	defer unsub()

	bus.Publish(Event{ConversationID: "conv-2", Type: EventTypeDone})

	select {
	case <-ch:
		t.Fatal("received event for another conversation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := newTestBus()
	ch, unsub := bus.Subscribe("conv-1")
	unsub()

	_, open := <-ch
	require.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(Event{ConversationID: "conv-1", Type: EventTypeDone})
}

func TestEventBus_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	bus := newTestBus()
	_, unsub := bus.Subscribe("conv-1")
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			bus.Publish(Event{ConversationID: "conv-1", Type: EventTypeTurn})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on full channel")
	}
}
