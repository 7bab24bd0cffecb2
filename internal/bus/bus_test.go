package bus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestPublishReachesSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewEventBus()
	var got atomic.Int32
	b.Subscribe(EventTypeWakeChanged, func(e Event) {
		if e.Data["wake_state"] == "sleep" {
			got.Add(1)
		}
	})
	b.Subscribe(EventTypeGestureChanged, func(Event) { got.Add(100) })

	b.Publish(Event{Type: EventTypeWakeChanged, Data: map[string]any{"wake_state": "sleep"}})
	b.Wait()

	assert.Equal(t, int32(1), got.Load())
}

func TestPublishSyncWaits(t *testing.T) {
	b := NewEventBus()
	var mu sync.Mutex
	var seen []EventType
	b.SubscribeMultiple([]EventType{EventTypeConnected, EventTypeDisconnected}, func(e Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	b.PublishSync(Event{Type: EventTypeConnected})
	b.PublishSync(Event{Type: EventTypeDisconnected})

	assert.Equal(t, []EventType{EventTypeConnected, EventTypeDisconnected}, seen)
}

func TestClear(t *testing.T) {
	b := NewEventBus()
	called := false
	b.Subscribe(EventTypeError, func(Event) { called = true })
	b.Clear()

	b.PublishSync(Event{Type: EventTypeError})
	assert.False(t, called)
}
