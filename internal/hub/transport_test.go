package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBrokenPipe = errors.New("broken pipe")

type fakeTransport struct {
	in      chan []byte
	written chan []byte
	closed  chan struct{}

	mu         sync.Mutex
	writes     int
	failWrites bool
	closeOnce  sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:      make(chan []byte, 16),
		written: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case b := <-f.in:
		return b, nil
	case <-f.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (f *fakeTransport) Write(message []byte) error {
	f.mu.Lock()
	f.writes++
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return errBrokenPipe
	}
	f.written <- append([]byte(nil), message...)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeTransport) send(t *testing.T, frame string) {
	t.Helper()
	select {
	case f.in <- []byte(frame):
	case <-time.After(time.Second):
		t.Fatalf("timeout sending frame %q", frame)
	}
}

func (f *fakeTransport) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case b := <-f.written:
		var out map[string]any
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("unmarshal reply %q: %v", b, err)
		}
		return out
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for reply")
		return nil
	}
}

func (f *fakeTransport) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case b := <-f.written:
		t.Fatalf("unexpected reply %s", b)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

// registered adds a connection to h without a read loop, for delivery tests.
func registered(t *testing.T, h *Hub) (*Conn, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	c := NewConn(ft, "test")
	if _, err := h.registry.Register(c, time.Now()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return c, ft
}
