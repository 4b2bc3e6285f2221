// Package events holds the hub handlers for authentication and rooms.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"cortex-server/internal/hub"
	"cortex-server/internal/model"
	"cortex-server/internal/store"
)

const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventRoomMessage = "room_message"

	EventAuthSuccess = "auth_success"
	EventAuthError   = "auth_error"
	EventRoomJoined  = "room_joined"
	EventRoomLeft    = "room_left"
)

// UserLookup confirms a token subject is still a known account.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (model.User, error)
}

type Deps struct {
	Hub      *hub.Hub
	Users    UserLookup
	Verifier hub.TokenVerifier
	Logger   *slog.Logger
}

type handlers struct {
	hub      *hub.Hub
	users    UserLookup
	verifier hub.TokenVerifier
	logger   *slog.Logger
}

// Register subscribes the handlers on d.Hub.
func Register(d Deps) {
	h := &handlers{hub: d.Hub, users: d.Users, verifier: d.Verifier, logger: d.Logger}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d.Hub.On(hub.EventAuth, h.auth)
	d.Hub.On(EventJoinRoom, h.joinRoom)
	d.Hub.On(EventLeaveRoom, h.leaveRoom)
	d.Hub.On(EventRoomMessage, h.roomMessage)
}

type authPayload struct {
	Token string `json:"token"`
	Room  string `json:"room"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type messagePayload struct {
	Message string `json:"message"`
}

func (h *handlers) auth(ctx context.Context, c *hub.Conn, payload json.RawMessage) error {
	var p authPayload
	if err := decode(payload, &p); err != nil || p.Token == "" {
		h.send(c, hub.Message{Event: EventAuthError, Message: "token required"})
		return nil
	}
	if h.verifier == nil {
		h.send(c, hub.Message{Event: EventAuthError, Message: "authentication unavailable"})
		return hub.ErrNoVerifier
	}

	userID, err := h.verifier.Subject(p.Token)
	if err != nil {
		h.send(c, hub.Message{Event: EventAuthError, Message: "invalid token"})
		return nil
	}
	if h.users != nil {
		if _, err := h.users.GetUser(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				h.send(c, hub.Message{Event: EventAuthError, Message: "unknown user"})
				return nil
			}
			h.send(c, hub.Message{Event: EventAuthError, Message: "authentication unavailable"})
			return err
		}
	}

	if err := h.hub.MarkAuthenticated(c, p.Token); err != nil {
		return err
	}
	if p.Room != "" {
		if err := h.hub.Join(c, p.Room); err != nil {
			return err
		}
	}

	h.logger.Info("client authenticated", "conn", c.ID(), "user", userID, "room", p.Room)
	h.send(c, hub.Message{Event: EventAuthSuccess, Message: userID})
	return nil
}

func (h *handlers) joinRoom(_ context.Context, c *hub.Conn, payload json.RawMessage) error {
	var p roomPayload
	if err := decode(payload, &p); err != nil || p.Room == "" {
		h.send(c, hub.ErrorReply{Error: "room required"})
		return nil
	}
	if err := h.hub.Join(c, p.Room); err != nil {
		return err
	}
	h.send(c, hub.Message{Event: EventRoomJoined, Message: p.Room})
	return nil
}

func (h *handlers) leaveRoom(_ context.Context, c *hub.Conn, _ json.RawMessage) error {
	room, ok := h.hub.Leave(c)
	if !ok {
		h.send(c, hub.ErrorReply{Error: "not in a room"})
		return nil
	}
	h.send(c, hub.Message{Event: EventRoomLeft, Message: room})
	return nil
}

func (h *handlers) roomMessage(_ context.Context, c *hub.Conn, payload json.RawMessage) error {
	var p messagePayload
	if err := decode(payload, &p); err != nil {
		h.send(c, hub.ErrorReply{Error: "invalid payload"})
		return nil
	}
	sess, ok := h.hub.Session(c)
	if !ok {
		return hub.ErrSessionNotFound
	}
	if sess.Room == "" {
		h.send(c, hub.ErrorReply{Error: "join a room first"})
		return nil
	}
	if _, err := h.hub.BroadcastJSON(hub.Message{Event: EventRoomMessage, Message: p.Message}, sess.Room); err != nil {
		return err
	}
	return nil
}

func (h *handlers) send(c *hub.Conn, v any) {
	if err := h.hub.Send(c, v); err != nil {
		h.logger.Warn("reply failed", "conn", c.ID(), "error", err)
	}
}

// decode treats an absent payload as an empty object.
func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	return json.Unmarshal(payload, v)
}
