package hub

import "encoding/json"

const (
	EventAuth  = "auth"
	EventPing  = "ping"
	EventPong  = "pong"
	EventError = "error"
)

const (
	errInvalidPayload = "invalid payload"
	errEventRequired  = "event field required"
)

type InboundMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Message is the outbound shape used for notifications, broadcasts and
// gated-event errors.
type Message struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

type PongReply struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func notPermitted(event string) Message {
	return Message{Event: EventError, Message: event + " not permitted before authentication"}
}
