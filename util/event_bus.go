// util/event_bus.go

package util

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/sentinel/logging"
)

// Event represents an event in the system
type Event struct {
	Type    string
	Payload interface{}
}

// EventHandler is a function that handles an event
type EventHandler func(context.Context, Event) error

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus delivers events synchronously, in subscription order, on the
// publisher's goroutine. Delivery is at-most-once and best-effort: a failing or
// panicking handler is reported on the error channel and does not stop the
// remaining handlers. Handlers that do I/O must hand work off themselves.
type EventBus struct {
	subscribers map[string][]subscription
	nextID      uint64
	mu          sync.RWMutex
	errorChan   chan error
	closeOnce   sync.Once
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewEventBus creates a new EventBus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]subscription),
		errorChan:   make(chan error, 100),
		done:        make(chan struct{}),
	}
}

// Subscribe adds a handler for eventType and returns an id for Unsubscribe.
func (eb *EventBus) Subscribe(eventType string, handler EventHandler) uint64 {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscription{id: eb.nextID, handler: handler})
	return eb.nextID
}

// Unsubscribe removes the subscription with the given id.
func (eb *EventBus) Unsubscribe(eventType string, id uint64) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[eventType]
	for i, s := range subs {
		if s.id == id {
			eb.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers of eventType.
func (eb *EventBus) Publish(ctx context.Context, eventType string, payload interface{}) {
	eb.mu.RLock()
	handlers := append([]subscription(nil), eb.subscribers[eventType]...)
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:    eventType,
		Payload: payload,
	}

	for _, s := range handlers {
		if err := eb.dispatch(ctx, s.handler, event); err != nil {
			eb.reportError(eventType, err)
		}
	}
}

func (eb *EventBus) dispatch(ctx context.Context, h EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	if err := h(ctx, event); err != nil {
		return fmt.Errorf("event handler error: %w", err)
	}
	return nil
}

func (eb *EventBus) reportError(eventType string, err error) {
	select {
	case eb.errorChan <- err:
	default:
		logger.Error("Error channel full, logging event handler error",
			zap.Error(err),
			zap.String("eventType", eventType))
	}
}

// Start begins logging handler errors until ctx is done or Close is called.
func (eb *EventBus) Start(ctx context.Context) {
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		eb.processErrors(ctx)
	}()
}

// Close stops the error processor and waits for it to exit.
func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() { close(eb.done) })
	eb.wg.Wait()
}

func (eb *EventBus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-eb.errorChan:
			logger.Error("Event handler error", zap.Error(err))
		case <-ctx.Done():
			return
		case <-eb.done:
			return
		}
	}
}
