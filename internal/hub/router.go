package hub

import (
	"go.uber.org/zap"

	"github.com/synkr/synkr/internal/domain"
)

// Router resolves an outbound message to its live target connections and
// pushes it to each. Messages reach the router after the caller has persisted
// them; a target with no live handles is simply not delivered in real time.
type Router struct {
	registry *Registry
	rooms    *Rooms
	log      *zap.Logger
}

// NewRouter creates a Router over a registry and room set.
func NewRouter(registry *Registry, rooms *Rooms, log *zap.Logger) *Router {
	return &Router{registry: registry, rooms: rooms, log: log}
}

// Deliver pushes a message to all resolved handles and returns the number of
// successful sends. Zero is a valid result, not an error. A group message
// goes to every subscriber of the room, the sender's own handles included.
// A failed send is logged and does not abort delivery to the rest.
func (rt *Router) Deliver(msg domain.OutboundMessage) int {
	var (
		targets []Connection
		event   string
	)
	if msg.IsGroup() {
		targets = rt.rooms.Subscribers(msg.GroupID)
		event = domain.EventGroupMessage
	} else {
		targets = rt.registry.HandlesFor(msg.RecipientID)
		event = domain.EventDirectMessage
	}

	data, err := domain.Encode(domain.Envelope{Event: event, Payload: msg.Payload})
	if err != nil {
		rt.log.Error("encode outbound message", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, c := range targets {
		if err := c.Send(data); err != nil {
			rt.log.Warn("message send failed",
				zap.String("event", event),
				zap.String("sender", msg.SenderID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}
