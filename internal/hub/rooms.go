package hub

import "sync"

// Rooms tracks which connections are subscribed to which group's broadcast
// channel. It performs no authorization: callers verify group membership
// against the store before Join. Any group ID is valid at this layer.
type Rooms struct {
	mu          sync.RWMutex
	subscribers map[string]map[Connection]struct{}
	joined      map[Connection]map[string]struct{}
}

// NewRooms creates an empty Rooms.
func NewRooms() *Rooms {
	return &Rooms{
		subscribers: make(map[string]map[Connection]struct{}),
		joined:      make(map[Connection]map[string]struct{}),
	}
}

// Join subscribes a handle to a group room. Joining twice is idempotent.
func (r *Rooms) Join(groupID string, c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.subscribers[groupID]
	if !ok {
		subs = make(map[Connection]struct{})
		r.subscribers[groupID] = subs
	}
	subs[c] = struct{}{}
	rooms, ok := r.joined[c]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[c] = rooms
	}
	rooms[groupID] = struct{}{}
}

// Leave unsubscribes a handle from a room. Empty rooms are pruned; the group
// itself lives in the persistence layer regardless.
func (r *Rooms) Leave(groupID string, c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(groupID, c)
}

// LeaveAll removes a handle from every room it joined. Called on disconnect
// so no subscription outlives its connection.
func (r *Rooms) LeaveAll(c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for groupID := range r.joined[c] {
		r.leaveLocked(groupID, c)
	}
}

func (r *Rooms) leaveLocked(groupID string, c Connection) {
	if subs, ok := r.subscribers[groupID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(r.subscribers, groupID)
		}
	}
	if rooms, ok := r.joined[c]; ok {
		delete(rooms, groupID)
		if len(rooms) == 0 {
			delete(r.joined, c)
		}
	}
}

// Subscribers returns the handles currently subscribed to a room.
func (r *Rooms) Subscribers(groupID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Connection, 0, len(r.subscribers[groupID]))
	for c := range r.subscribers[groupID] {
		conns = append(conns, c)
	}
	return conns
}
