package hub

import "testing"

func TestRoomIndex_JoinLeaveDeletesEmptyRoom(t *testing.T) {
	ri := NewRoomIndex()
	a := NewConn(newFakeTransport(), "a")
	b := NewConn(newFakeTransport(), "b")

	if _, err := ri.Join(a, "lobby"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := ri.Join(b, "lobby"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	ri.Leave(a)
	if !ri.Exists("lobby") {
		t.Fatalf("room should remain while b is a member")
	}
	ri.Leave(b)
	if ri.Exists("lobby") {
		t.Fatalf("room should be deleted once empty")
	}
	if ri.Len() != 0 {
		t.Fatalf("expected no rooms, got %d", ri.Len())
	}
}

func TestRoomIndex_JoinMovesBetweenRooms(t *testing.T) {
	ri := NewRoomIndex()
	a := NewConn(newFakeTransport(), "a")

	if _, err := ri.Join(a, "one"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	prev, err := ri.Join(a, "two")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if prev != "one" {
		t.Fatalf("expected previous room one, got %q", prev)
	}
	if ri.Exists("one") {
		t.Fatalf("expected room one to be removed")
	}
	if room, _ := ri.RoomOf(a); room != "two" {
		t.Fatalf("expected room two, got %q", room)
	}
	if len(ri.Members("two")) != 1 {
		t.Fatalf("expected one member")
	}
}

func TestRoomIndex_RejectsEmptyRoom(t *testing.T) {
	ri := NewRoomIndex()
	if _, err := ri.Join(NewConn(newFakeTransport(), "a"), ""); err != ErrInvalidRoom {
		t.Fatalf("expected ErrInvalidRoom, got %v", err)
	}
}

func TestRoomIndex_MembersIsSnapshot(t *testing.T) {
	ri := NewRoomIndex()
	a := NewConn(newFakeTransport(), "a")
	b := NewConn(newFakeTransport(), "b")
	_, _ = ri.Join(a, "r")
	_, _ = ri.Join(b, "r")

	members := ri.Members("r")
	ri.Leave(a)
	ri.Leave(b)
	if len(members) != 2 {
		t.Fatalf("snapshot changed under mutation: %d", len(members))
	}
	if len(ri.Members("missing")) != 0 {
		t.Fatalf("expected no members for unknown room")
	}
}
