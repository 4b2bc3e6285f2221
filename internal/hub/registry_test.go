package hub

import (
	"testing"
	"time"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	c := NewConn(newFakeTransport(), "a")

	sess, err := r.Register(c, time.Now())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.Authenticated || sess.Room != "" || sess.Token != "" {
		t.Fatalf("expected fresh unauthenticated session, got %+v", sess)
	}
	if _, err := r.Register(c, time.Now()); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	if err := r.MarkAuthenticated(c, "tok"); err != nil {
		t.Fatalf("MarkAuthenticated: %v", err)
	}
	got, ok := r.Get(c)
	if !ok || !got.Authenticated || got.Token != "tok" {
		t.Fatalf("unexpected session %+v", got)
	}

	removed, ok := r.Remove(c)
	if !ok || removed.Token != "tok" {
		t.Fatalf("unexpected removed session %+v", removed)
	}
	if _, ok := r.Remove(c); ok {
		t.Fatalf("expected second remove to report absent")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestRegistry_MarkAuthenticatedUnknown(t *testing.T) {
	r := NewRegistry()
	c := NewConn(newFakeTransport(), "a")
	if err := r.MarkAuthenticated(c, "tok"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
