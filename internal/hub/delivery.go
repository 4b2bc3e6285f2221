package hub

import "encoding/json"

type DeliveryResult struct {
	Delivered int
	Failed    int
}

// Broadcast sends message to every member of room, or to every connection
// when room is empty. Targets whose send fails are disconnected after the
// pass.
func (h *Hub) Broadcast(message []byte, room string) DeliveryResult {
	var targets []*Conn
	if room != "" {
		targets = h.rooms.Members(room)
	} else {
		targets = h.registry.conns()
	}

	var res DeliveryResult
	var failed []*Conn
	for _, c := range targets {
		if err := c.Send(message); err != nil {
			failed = append(failed, c)
			h.logger.Warn("broadcast send failed", "conn", c.ID(), "room", room, "error", err)
			continue
		}
		res.Delivered++
	}
	res.Failed = len(failed)
	h.dropFailed(failed)
	return res
}

func (h *Hub) BroadcastJSON(v any, room string) (DeliveryResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return DeliveryResult{}, err
	}
	return h.Broadcast(data, room), nil
}

// Notify sends {event, message} to every session whose stored token
// verifies to userID. A token that fails verification skips only that
// session.
func (h *Hub) Notify(userID, message, event string) (DeliveryResult, error) {
	if h.verifier == nil {
		return DeliveryResult{}, ErrNoVerifier
	}
	data, err := json.Marshal(Message{Event: event, Message: message})
	if err != nil {
		return DeliveryResult{}, err
	}

	var res DeliveryResult
	var failed []*Conn
	for _, e := range h.registry.snapshot() {
		if e.session.Token == "" {
			continue
		}
		subject, err := h.verifier.Subject(e.session.Token)
		if err != nil {
			h.logger.Warn("skipping session with unverifiable token", "conn", e.conn.ID(), "error", err)
			continue
		}
		if subject != userID {
			continue
		}
		if err := e.conn.Send(data); err != nil {
			failed = append(failed, e.conn)
			h.logger.Warn("notify send failed", "conn", e.conn.ID(), "user", userID, "error", err)
			continue
		}
		res.Delivered++
	}
	res.Failed = len(failed)
	h.dropFailed(failed)
	return res, nil
}

// Send writes v to a single connection without the broadcast cleanup.
func (h *Hub) Send(c *Conn, v any) error {
	return c.SendJSON(v)
}

func (h *Hub) dropFailed(failed []*Conn) {
	for _, c := range failed {
		if h.disconnect(c) {
			_ = c.Close()
		}
	}
}
