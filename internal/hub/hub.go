// Package hub is the real-time connection hub: it tracks live connections and
// their sessions, keeps room membership, routes inbound events to subscribed
// handlers and pushes messages back out.
package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// TokenVerifier resolves a stored credential token to its subject.
type TokenVerifier interface {
	Subject(token string) (string, error)
}

type Options struct {
	Logger   *slog.Logger
	Verifier TokenVerifier
	Now      func() time.Time
}

type Hub struct {
	registry   *Registry
	rooms      *RoomIndex
	dispatcher *Dispatcher
	verifier   TokenVerifier
	logger     *slog.Logger
	now        func() time.Time

	// membership serialises mutations that touch both the registry and the
	// room index so the two never disagree.
	membership sync.Mutex

	lifecycleMu sync.Mutex
	closed      bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func New(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry:   NewRegistry(),
		rooms:      NewRoomIndex(),
		dispatcher: NewDispatcher(logger),
		verifier:   opts.Verifier,
		logger:     logger,
		now:        now,
		ctx:        ctx,
		cancel:     cancel,
	}
	h.dispatcher.Subscribe(EventPing, h.handlePing)
	return h
}

func (h *Hub) On(event string, handler Handler) SubscriptionID {
	return h.dispatcher.Subscribe(event, handler)
}

func (h *Hub) Off(event string, id SubscriptionID) bool {
	return h.dispatcher.Unsubscribe(event, id)
}

// Emit raises an event internally, as if it had arrived on c.
func (h *Hub) Emit(ctx context.Context, event string, c *Conn, payload json.RawMessage) {
	h.dispatcher.Emit(ctx, event, c, payload)
}

func (h *Hub) Session(c *Conn) (Session, bool) {
	return h.registry.Get(c)
}

func (h *Hub) MarkAuthenticated(c *Conn, token string) error {
	return h.registry.MarkAuthenticated(c, token)
}

// Join moves c into room, leaving its previous room first.
func (h *Hub) Join(c *Conn, room string) error {
	if room == "" {
		return ErrInvalidRoom
	}

	h.membership.Lock()
	defer h.membership.Unlock()

	if _, ok := h.registry.Get(c); !ok {
		return ErrSessionNotFound
	}
	if _, err := h.rooms.Join(c, room); err != nil {
		return err
	}
	h.registry.setRoom(c, room)
	return nil
}

func (h *Hub) Leave(c *Conn) (string, bool) {
	h.membership.Lock()
	defer h.membership.Unlock()

	room, ok := h.rooms.Leave(c)
	if ok {
		h.registry.setRoom(c, "")
	}
	return room, ok
}

func (h *Hub) Members(room string) []*Conn {
	return h.rooms.Members(room)
}

// Serve owns c for its lifetime: it registers the session, runs the read
// loop until the transport fails or ctx (or the hub) is cancelled, then
// removes the session and its room membership.
func (h *Hub) Serve(ctx context.Context, c *Conn) error {
	h.lifecycleMu.Lock()
	if h.closed {
		h.lifecycleMu.Unlock()
		_ = c.Close()
		return ErrHubClosed
	}
	h.wg.Add(1)
	h.lifecycleMu.Unlock()
	defer h.wg.Done()

	if _, err := h.registry.Register(c, h.now()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopLocal := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stopLocal()
	stopHub := context.AfterFunc(h.ctx, cancel)
	defer stopHub()

	defer func() {
		h.disconnect(c)
		_ = c.Close()
		h.logger.Debug("client disconnected", "conn", c.ID(), "remote", c.RemoteAddr())
	}()
	h.logger.Debug("client connected", "conn", c.ID(), "remote", c.RemoteAddr())

	for {
		data, err := c.transport.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		h.handleFrame(ctx, c, data)
	}
}

func (h *Hub) handleFrame(ctx context.Context, c *Conn, data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(c, ErrorReply{Error: errInvalidPayload})
		return
	}
	if msg.Event == "" {
		h.reply(c, ErrorReply{Error: errEventRequired})
		return
	}

	sess, ok := h.registry.Get(c)
	if !ok {
		return
	}
	if !sess.Authenticated && msg.Event != EventAuth {
		h.reply(c, notPermitted(msg.Event))
		return
	}

	h.dispatcher.Emit(ctx, msg.Event, c, msg.Payload)
}

func (h *Hub) reply(c *Conn, v any) {
	if err := c.SendJSON(v); err != nil {
		h.logger.Warn("reply failed", "conn", c.ID(), "error", err)
	}
}

// disconnect removes c from the registry and its room. It reports whether
// c was still registered, so concurrent callers clean up exactly once.
func (h *Hub) disconnect(c *Conn) bool {
	h.membership.Lock()
	defer h.membership.Unlock()

	if _, ok := h.registry.Remove(c); !ok {
		return false
	}
	h.rooms.Leave(c)
	return true
}

// Shutdown stops accepting connections, cancels every read loop and waits
// for their cleanup to finish or for ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.lifecycleMu.Lock()
	if h.closed {
		h.lifecycleMu.Unlock()
		return nil
	}
	h.closed = true
	h.lifecycleMu.Unlock()

	h.logger.Info("hub shutting down", "sessions", h.registry.Len())
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.logger.Warn("hub shutdown timed out", "sessions", h.registry.Len())
		return ctx.Err()
	}
}

type Stats struct {
	Sessions      int `json:"sessions"`
	Authenticated int `json:"authenticated"`
	Rooms         int `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	st := Stats{Rooms: h.rooms.Len()}
	for _, e := range h.registry.snapshot() {
		st.Sessions++
		if e.session.Authenticated {
			st.Authenticated++
		}
	}
	return st
}
