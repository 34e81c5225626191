package hub

import "sync"

// Connection is the handle the hub holds for one live client channel. Send
// must not block: a peer that cannot accept the frame yields an error and the
// frame is dropped for that handle.
type Connection interface {
	Send(data []byte) error
}

// Registry maps user IDs to their live connections. One user may hold several
// handles (multiple devices or tabs); a handle belongs to at most one user.
// Absence of a user entry means offline.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[Connection]struct{}
	owner  map[Connection]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[Connection]struct{}),
		owner:  make(map[Connection]string),
	}
}

// Register adds a handle under a user. Registering the same handle twice is
// idempotent; registering it under a different user moves it, so a handle is
// never listed under two users at once.
func (r *Registry) Register(userID string, c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.owner[c]; ok && prev != userID {
		delete(r.byUser[prev], c)
		if len(r.byUser[prev]) == 0 {
			delete(r.byUser, prev)
		}
	}
	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[Connection]struct{})
		r.byUser[userID] = conns
	}
	conns[c] = struct{}{}
	r.owner[c] = userID
}

// Unregister removes a handle from whatever user owns it. It returns the
// owning user ID and whether that user now has zero remaining handles. An
// unknown handle returns ("", false).
func (r *Registry) Unregister(c Connection) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.owner[c]
	if !ok {
		return "", false
	}
	delete(r.owner, c)
	conns := r.byUser[userID]
	delete(conns, c)
	if len(conns) == 0 {
		delete(r.byUser, userID)
		return userID, true
	}
	return userID, false
}

// HandlesFor returns the live handles for a user; empty if offline.
func (r *Registry) HandlesFor(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Connection, 0, len(r.byUser[userID]))
	for c := range r.byUser[userID] {
		conns = append(conns, c)
	}
	return conns
}

// IsOnline reports whether the user has at least one live handle.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Online returns the set of currently online user IDs.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		users = append(users, u)
	}
	return users
}

// Connections returns every registered handle.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Connection, 0, len(r.owner))
	for c := range r.owner {
		conns = append(conns, c)
	}
	return conns
}
