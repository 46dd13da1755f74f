package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/expense-reimbursement/internal/domain/event"
)

// ErrClosed is returned when dispatching to a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher routes committed events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler with a name used in logs and receipts
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs handlers in registration order and stops at the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs every handler in its own goroutine. The handlers get a
	// context detached from ctx's cancellation; the returned receipt reports
	// their outcomes.
	DispatchAsync(ctx context.Context, evt *event.Event) *Receipt

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close rejects new dispatches and waits for running async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	// mu guards handlers and closed. Async dispatch registers its goroutines on wg
	// under the read lock, so no Add can follow the Wait in Close.
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	closed   bool
	logger   Logger

	wg sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribeLocked(eventType, fmt.Sprintf("%s-%d", eventType, len(d.handlers[eventType])), handler)
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribeLocked(eventType, name, handler)
}

func (d *eventDispatcher) subscribeLocked(eventType event.Type, name string, handler Handler) {
	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})
	d.info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[eventType]
	filtered := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		if h.Name != name {
			filtered = append(filtered, h)
		}
	}
	d.handlers[eventType] = filtered

	d.info("Handler unregistered", "event_type", eventType, "handler_name", name)
}

// snapshot copies the handler slice so dispatch never races with Subscribe
func (d *eventDispatcher) snapshot(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[eventType]...)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrClosed
	}
	handlers := append([]HandlerInfo(nil), d.handlers[evt.Type]...)
	d.mu.RUnlock()

	d.info("Dispatching event", "event_type", evt.Type, "event_id", evt.ID, "handler_count", len(handlers))

	for _, h := range handlers {
		if err := d.safeExecute(ctx, evt, h); err != nil {
			d.error("Handler error", "event_type", evt.Type, "event_id", evt.ID, "handler_name", h.Name, "error", err)
			return fmt.Errorf("handler %s failed: %w", h.Name, err)
		}
	}
	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) *Receipt {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.error("Cannot dispatch async event, dispatcher is closed", "event_type", evt.Type, "event_id", evt.ID)
		r := newReceipt(evt.ID, 1)
		r.results[0] = HandlerResult{EventType: evt.Type, Err: ErrClosed}
		r.finish()
		return r
	}
	handlers := append([]HandlerInfo(nil), d.handlers[evt.Type]...)
	// one per handler plus the receipt finisher
	d.wg.Add(len(handlers) + 1)
	d.mu.RUnlock()

	d.info("Dispatching event asynchronously", "event_type", evt.Type, "event_id", evt.ID, "handler_count", len(handlers))

	receipt := newReceipt(evt.ID, len(handlers))
	detached := context.WithoutCancel(ctx)

	var pending sync.WaitGroup
	pending.Add(len(handlers))
	for i, h := range handlers {
		go func(i int, h HandlerInfo) {
			defer d.wg.Done()
			defer pending.Done()

			err := d.safeExecute(detached, evt, h)
			if err != nil {
				d.error("Async handler error", "event_type", evt.Type, "event_id", evt.ID, "handler_name", h.Name, "error", err)
			}
			receipt.results[i] = HandlerResult{HandlerName: h.Name, EventType: evt.Type, Err: err}
		}(i, h)
	}

	go func() {
		defer d.wg.Done()
		pending.Wait()
		receipt.finish()
	}()

	return receipt
}

func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	handlers := d.snapshot(eventType)
	for i := range handlers {
		handlers[i].Handler = nil
	}
	return handlers
}

func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	d.mu.Unlock()

	d.info("Closing dispatcher, waiting for async handlers")
	d.wg.Wait()
	d.info("Dispatcher closed")
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.error("Handler panic recovered", "event_type", evt.Type, "event_id", evt.ID, "handler_name", info.Name, "panic", r)
		}
	}()
	return info.Handler(ctx, evt)
}

func (d *eventDispatcher) info(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *eventDispatcher) error(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
