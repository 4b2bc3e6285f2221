package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type Writer interface {
	Write(message []byte) error
	Close() error
}

// Transport is one live bidirectional stream. ReadMessage blocks until a
// frame arrives and must return an error once Close has been called.
type Transport interface {
	Writer
	ReadMessage() ([]byte, error)
}

// Conn is the hub's handle on a Transport. Writes are serialised so handlers
// and broadcasts from other goroutines can share it.
type Conn struct {
	id         string
	remoteAddr string
	transport  Transport

	sendMu sync.Mutex
	closed atomic.Bool
}

func NewConn(t Transport, remoteAddr string) *Conn {
	return &Conn{
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
		transport:  t,
	}
}

func (c *Conn) ID() string         { return c.id }
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

func (c *Conn) Send(message []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.transport.Write(message)
}

func (c *Conn) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

func (c *Conn) Closed() bool { return c.closed.Load() }
