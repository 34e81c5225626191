package testutil

import (
	"errors"
	"sync"

	"github.com/synkr/synkr/internal/domain"
	"github.com/synkr/synkr/internal/store"
)

// ErrSendFailed is returned by a MockConn configured to fail.
var ErrSendFailed = errors.New("mock send failed")

// MockConn implements hub.Connection for testing.
type MockConn struct {
	Name   string
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

// NewMockConn creates a new MockConn labeled with a name.
func NewMockConn(name string) *MockConn {
	return &MockConn{Name: name}
}

// Send records a frame, or fails if FailSends was set.
func (m *MockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return ErrSendFailed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.frames = append(m.frames, cp)
	return nil
}

// FailSends makes subsequent Send calls return ErrSendFailed.
func (m *MockConn) FailSends(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Frames returns a copy of all frames received by the connection.
func (m *MockConn) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([][]byte, len(m.frames))
	copy(cp, m.frames)
	return cp
}

// LastFrame returns the most recent frame, or nil if none.
func (m *MockConn) LastFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

// MockStore implements store.Store in memory for handler tests.
type MockStore struct {
	mu       sync.Mutex
	users    map[string]domain.User
	groups   map[string]domain.Group
	messages []domain.Message
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:  make(map[string]domain.User),
		groups: make(map[string]domain.Group),
	}
}

// CreateUser persists a user in memory.
func (s *MockStore) CreateUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

// UserByUsername looks a user up by username.
func (s *MockStore) UserByUsername(username string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

// UserByID looks a user up by ID.
func (s *MockStore) UserByID(id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

// Users returns all users except the given one.
func (s *MockStore) Users(excludeID string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []domain.User
	for _, u := range s.users {
		if u.ID != excludeID {
			users = append(users, u)
		}
	}
	return users, nil
}

// CreateGroup persists a group in memory.
func (s *MockStore) CreateGroup(g domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return nil
}

// GroupByID returns a stored group.
func (s *MockStore) GroupByID(id string) (domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.Group{}, store.ErrNotFound
	}
	return g, nil
}

// GroupsFor returns the groups the user belongs to.
func (s *MockStore) GroupsFor(userID string) ([]domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []domain.Group
	for _, g := range s.groups {
		for _, m := range g.Members {
			if m == userID {
				groups = append(groups, g)
				break
			}
		}
	}
	return groups, nil
}

// AddMember adds a user to a group.
func (s *MockStore) AddMember(groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return store.ErrNotFound
	}
	for _, m := range g.Members {
		if m == userID {
			return store.ErrDuplicate
		}
	}
	g.Members = append(g.Members, userID)
	s.groups[groupID] = g
	return nil
}

// IsMember reports whether the user belongs to the group.
func (s *MockStore) IsMember(groupID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return false, nil
	}
	for _, m := range g.Members {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

// SaveMessage persists a message in memory.
func (s *MockStore) SaveMessage(m domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

// DirectHistory returns the two-party conversation in insertion order.
func (s *MockStore) DirectHistory(userA, userB string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []domain.Message
	for _, m := range s.messages {
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// GroupHistory returns a group's messages in insertion order.
func (s *MockStore) GroupHistory(groupID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []domain.Message
	for _, m := range s.messages {
		if m.GroupID == groupID {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Messages returns a copy of every stored message.
func (s *MockStore) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.Message, len(s.messages))
	copy(cp, s.messages)
	return cp
}

// Close is a no-op for the mock store.
func (s *MockStore) Close() error { return nil }
