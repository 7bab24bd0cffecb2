// Package bus is the in-process event bus that carries avatar transitions
// between the animator, the session, the feed client and the stage server.
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

const (
	// Interaction lifecycle
	EventTypeStateChanged EventType = "session.state_changed"
	EventTypeInterrupted  EventType = "session.interrupted"
	EventTypeTranscript   EventType = "session.transcript"

	// Feed connection
	EventTypeConnected    EventType = "feed.connected"
	EventTypeDisconnected EventType = "feed.disconnected"
	EventTypeError        EventType = "feed.error"

	// Avatar transitions observed by the animator
	EventTypeWakeChanged       EventType = "avatar.wake_changed"
	EventTypeGestureChanged    EventType = "avatar.gesture_changed"
	EventTypeExpressionChanged EventType = "avatar.expression_changed"
	EventTypeSpeakingChanged   EventType = "avatar.speaking_changed"

	// Presentation
	EventTypeThemeReloaded EventType = "stage.theme_reloaded"
	EventTypeViewerJoined  EventType = "stage.viewer_joined"
	EventTypeViewerLeft    EventType = "stage.viewer_left"
)

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

func (b *EventBus) snapshot(t EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[t]))
	copy(handlers, b.handlers[t])
	return handlers
}

// Publish runs every subscribed handler in its own goroutine and returns
// without waiting. Publishers on the frame path use this.
func (b *EventBus) Publish(event Event) {
	for _, handler := range b.snapshot(event.Type) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			h(event)
		}(handler)
	}
}

// PublishSync sends an event and waits for all handlers to complete
func (b *EventBus) PublishSync(event Event) {
	var wg sync.WaitGroup
	for _, handler := range b.snapshot(event.Type) {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Wait blocks until every handler started by Publish has returned.
func (b *EventBus) Wait() {
	b.wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
