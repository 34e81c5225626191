package hub

import (
	"go.uber.org/zap"

	"github.com/synkr/synkr/internal/domain"
)

// Hub orchestrates the connection lifecycle: it owns the registry, room set,
// presence tracker, and router, and guarantees cleanup ordering on
// disconnect. It is the only entry point through which the transport layer
// mutates shared state.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	presence *Presence
	router   *Router
	log      *zap.Logger
}

// New creates a Hub with empty state.
func New(log *zap.Logger) *Hub {
	registry := NewRegistry()
	rooms := NewRooms()
	return &Hub{
		registry: registry,
		rooms:    rooms,
		presence: NewPresence(registry, log),
		router:   NewRouter(registry, rooms, log),
		log:      log,
	}
}

// OnConnectionOpen registers an authenticated connection and broadcasts the
// updated presence snapshot. The caller has already resolved the user ID;
// a connection without one never reaches the hub.
func (h *Hub) OnConnectionOpen(userID string, c Connection) {
	h.registry.Register(userID, c)
	h.log.Info("connection open", zap.String("user", userID))
	h.presence.OnConnectionChange()
}

// OnConnectionClose tears a connection down: room subscriptions first, then
// the registry entry, then the presence broadcast. Room cleanup precedes
// registry cleanup so no message can be routed to a half-torn-down
// connection. Closing an unknown handle is a no-op.
func (h *Hub) OnConnectionClose(c Connection) {
	h.rooms.LeaveAll(c)
	userID, wentOffline := h.registry.Unregister(c)
	if userID == "" {
		return
	}
	h.log.Info("connection closed",
		zap.String("user", userID),
		zap.Bool("offline", wentOffline),
	)
	h.presence.OnConnectionChange()
}

// JoinGroup subscribes a connection to a group room. Membership must already
// have been verified by the caller.
func (h *Hub) JoinGroup(groupID string, c Connection) {
	h.rooms.Join(groupID, c)
}

// LeaveGroup unsubscribes a connection from a group room.
func (h *Hub) LeaveGroup(groupID string, c Connection) {
	h.rooms.Leave(groupID, c)
}

// Deliver routes an already-persisted message to its live targets and
// returns the delivered count.
func (h *Hub) Deliver(msg domain.OutboundMessage) int {
	return h.router.Deliver(msg)
}

// IsOnline reports whether a user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

// Online returns the current online-user snapshot.
func (h *Hub) Online() []string {
	return h.registry.Online()
}
