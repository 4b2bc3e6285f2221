package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Handler processes one emitted event. Returning means the handler is done;
// handlers doing I/O simply block until it completes.
type Handler func(ctx context.Context, c *Conn, payload json.RawMessage) error

type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Dispatcher maps event names to ordered handler lists.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   SubscriptionID
	logger   *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe appends h to the handlers for event. Subscribing the same
// function twice yields two independent subscriptions.
func (d *Dispatcher) Subscribe(event string, h Handler) SubscriptionID {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.handlers[event] = append(d.handlers[event], subscription{id: id, handler: h})
	return id
}

func (d *Dispatcher) Unsubscribe(event string, id SubscriptionID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.handlers[event]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(d.handlers, event)
		} else {
			d.handlers[event] = next
		}
		return true
	}
	return false
}

func (d *Dispatcher) Count(event string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[event])
}

// Emit runs every handler for event in subscription order, one after the
// other. Failures are logged and do not stop later handlers. It returns the
// number of handlers that failed.
func (d *Dispatcher) Emit(ctx context.Context, event string, c *Conn, payload json.RawMessage) int {
	d.mu.RLock()
	subs := d.handlers[event]
	d.mu.RUnlock()

	failed := 0
	for _, s := range subs {
		if err := d.invoke(ctx, s.handler, c, payload); err != nil {
			failed++
			d.logger.Error("event handler failed",
				"event", event,
				"subscription", s.id,
				"conn", connID(c),
				"error", err)
		}
	}
	return failed
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, c *Conn, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, c, payload)
}

func connID(c *Conn) string {
	if c == nil {
		return ""
	}
	return c.ID()
}
