// Package events provides event handling functionality
package events

import (
	"context"
	"sync"

	"github.com/meltingprovince/virtualset/internal/logger"
	"github.com/meltingprovince/virtualset/internal/types"
)

// EventType represents the type of generation session event
type EventType string

const (
	// EventSubmitted is emitted when a brief was accepted and a job id assigned
	EventSubmitted EventType = "submitted"
	// EventRevisionSubmitted is emitted when a revision was accepted
	EventRevisionSubmitted EventType = "revision_submitted"
	// EventStatusUpdated is emitted for every applied status poll
	EventStatusUpdated EventType = "status_updated"
	// EventCompleted is emitted when a job completed, whether or not its results could be fetched
	EventCompleted EventType = "completed"
	// EventFailed is emitted when a job failed or polling was abandoned
	EventFailed EventType = "failed"
	// EventReset is emitted when the session was cleared
	EventReset EventType = "reset"
	// EventChannelSize is the default buffer size for the event channel
	EventChannelSize = 100
)

// Event represents a session state change
type Event struct {
	Type          EventType       // The type of event
	JobID         string          // The current job ID
	PreviousJobID string          // The job a revision was based on
	Status        types.JobStatus // Last known job status
	Progress      float64         // Last known progress, 0-100
	Stage         string          // Last known stage label
	Err           error           // Set on failed events and results fetch failures
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

// Bus fans session events out to subscribers. Handlers run sequentially on
// the processing goroutine, so they observe events in publish order.
type Bus struct {
	// handlers is a map of event types to their handlers
	handlers   map[EventType][]Handler
	all        []Handler
	handlersMu sync.RWMutex
	eventChan  chan Event
}

// NewBus creates a bus buffering up to size events
func NewBus(size int) *Bus {
	if size <= 0 {
		size = EventChannelSize
	}
	return &Bus{
		handlers:  make(map[EventType][]Handler),
		eventChan: make(chan Event, size),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	logger.Debugf("📝 Registered handler for event type: %s", eventType)
}

// SubscribeAll registers a handler for every event type
func (b *Bus) SubscribeAll(handler Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.all = append(b.all, handler)
}

// Terminal reports whether the event ends a job's lifecycle
func (t EventType) Terminal() bool {
	return t == EventCompleted || t == EventFailed
}

// Publish queues an event without blocking. When the buffer is full a
// non-terminal event is dropped, while a terminal event evicts the oldest
// queued event to make room.
func (b *Bus) Publish(event Event) bool {
	for {
		select {
		case b.eventChan <- event:
			logger.Debugf("📢 Published event: %s (Job: %s)", event.Type, event.JobID)
			return true
		default:
		}

		if !event.Type.Terminal() {
			logger.Warnf("⚠️ Event buffer full, dropped %s for job %s", event.Type, event.JobID)
			return false
		}
		select {
		case old := <-b.eventChan:
			logger.Warnf("⚠️ Event buffer full, evicted %s for job %s", old.Type, old.JobID)
		default:
		}
	}
}

// Start starts the event processing loop
func (b *Bus) Start(ctx context.Context) {
	go b.processEvents(ctx)
	logger.Debug("🎯 Started event processing loop")
}

// processEvents handles events in the background
func (b *Bus) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Debug("🛑 Stopping event processing loop")
			return
		case event := <-b.eventChan:
			b.dispatch(ctx, event)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event) {
	b.handlersMu.RLock()
	eventHandlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.all))
	eventHandlers = append(eventHandlers, b.handlers[event.Type]...)
	eventHandlers = append(eventHandlers, b.all...)
	b.handlersMu.RUnlock()

	for _, h := range eventHandlers {
		if err := h(ctx, event); err != nil {
			logger.Errorf("❌ Failed to handle event %s: %v", event.Type, err)
		}
	}
}
