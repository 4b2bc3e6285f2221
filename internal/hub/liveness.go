package hub

import (
	"context"
	"encoding/json"
	"time"
)

func (h *Hub) handlePing(_ context.Context, c *Conn, payload json.RawMessage) error {
	reply := PongReply{
		Event:     EventPong,
		Timestamp: h.now().Format(time.RFC3339),
		Payload:   payload,
	}
	if err := c.SendJSON(reply); err != nil {
		h.logger.Warn("pong send failed", "conn", c.ID(), "error", err)
	}
	return nil
}
