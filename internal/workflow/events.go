package workflow

import (
	"sync"
	"time"
)

// EventType identifies workflow lifecycle events.
type EventType string

const (
	EventStarted    EventType = "workflow.started"
	EventTransition EventType = "workflow.transition"
	EventCompleted  EventType = "workflow.completed"
	EventCancelled  EventType = "workflow.cancelled"
	EventSuspended  EventType = "workflow.suspended"
	EventResumed    EventType = "workflow.resumed"
	EventEscalated  EventType = "workflow.escalated"
	EventError      EventType = "workflow.error"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Type       EventType      `json:"type"`
	DocumentID string         `json:"document_id"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Action     string         `json:"action,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventHandler receives events synchronously. Handlers must not block.
type EventHandler func(Event)

// EventBus is a minimal in-process pub/sub. Subscribers registered for an
// event type, or for all events via SubscribeAll, are invoked in order.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
	global   []EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]EventHandler)}
}

// Subscribe registers a handler for one event type.
func (b *EventBus) Subscribe(t EventType, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, h)
}

// Publish delivers the event to matching subscribers.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	typed := append([]EventHandler(nil), b.handlers[e.Type]...)
	global := append([]EventHandler(nil), b.global...)
	b.mu.RUnlock()

	for _, h := range typed {
		h(e)
	}
	for _, h := range global {
		h(e)
	}
}
