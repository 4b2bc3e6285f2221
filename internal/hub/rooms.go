package hub

import "sync"

// RoomIndex maps room names to member connections. A connection belongs to
// at most one room; joining another room leaves the previous one first.
type RoomIndex struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Conn]struct{}
	byConn map[*Conn]string
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		rooms:  make(map[string]map[*Conn]struct{}),
		byConn: make(map[*Conn]string),
	}
}

// Join returns the room the connection was in before, if any.
func (ri *RoomIndex) Join(c *Conn, room string) (previous string, err error) {
	if room == "" {
		return "", ErrInvalidRoom
	}

	ri.mu.Lock()
	defer ri.mu.Unlock()

	previous = ri.byConn[c]
	if previous == room {
		return previous, nil
	}
	if previous != "" {
		ri.leaveLocked(c, previous)
	}

	set, ok := ri.rooms[room]
	if !ok {
		set = make(map[*Conn]struct{})
		ri.rooms[room] = set
	}
	set[c] = struct{}{}
	ri.byConn[c] = room
	return previous, nil
}

func (ri *RoomIndex) Leave(c *Conn) (string, bool) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	room, ok := ri.byConn[c]
	if !ok {
		return "", false
	}
	ri.leaveLocked(c, room)
	return room, true
}

func (ri *RoomIndex) leaveLocked(c *Conn, room string) {
	delete(ri.byConn, c)
	set, ok := ri.rooms[room]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(ri.rooms, room)
	}
}

// Members returns a copy, safe to range over while sends block.
func (ri *RoomIndex) Members(room string) []*Conn {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	set := ri.rooms[room]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (ri *RoomIndex) RoomOf(c *Conn) (string, bool) {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	room, ok := ri.byConn[c]
	return room, ok
}

func (ri *RoomIndex) Exists(room string) bool {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	_, ok := ri.rooms[room]
	return ok
}

func (ri *RoomIndex) Len() int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.rooms)
}
