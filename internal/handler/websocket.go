package handler

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"cortex-server/internal/hub"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type WebSocketHandler struct {
	hub             *hub.Hub
	upgrader        websocket.Upgrader
	maxMessageBytes int64
	logger          *slog.Logger
}

func NewWebSocketHandler(h *hub.Hub, origins *OriginPolicy, maxMessageBytes int64, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WebSocketHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
		maxMessageBytes: maxMessageBytes,
		logger:          logger,
	}
}

// wsTransport adapts a gorilla connection to hub.Transport. Writes are
// serialised by hub.Conn; WriteControl is safe alongside them.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *wsTransport) Write(message []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, message)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (h *WebSocketHandler) Serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}

	if h.maxMessageBytes > 0 {
		ws.SetReadLimit(h.maxMessageBytes)
	}
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := hub.NewConn(&wsTransport{conn: ws}, c.ClientIP())

	done := make(chan struct{})
	defer close(done)
	go keepAlive(ws, done)

	err = h.hub.Serve(c.Request.Context(), conn)
	switch {
	case err == nil,
		errors.Is(err, hub.ErrHubClosed),
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
	default:
		h.logger.Debug("websocket closed", "conn", conn.ID(), "error", err)
	}
}

func keepAlive(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = ws.Close()
				return
			}
		}
	}
}
