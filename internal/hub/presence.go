package hub

import (
	"go.uber.org/zap"

	"github.com/synkr/synkr/internal/domain"
)

// Presence derives the online-user set from the registry and pushes it to
// every live connection. Each broadcast carries the full snapshot rather than
// a delta; last broadcast wins.
type Presence struct {
	registry *Registry
	log      *zap.Logger
}

// NewPresence creates a Presence tracker over a registry.
func NewPresence(registry *Registry, log *zap.Logger) *Presence {
	return &Presence{registry: registry, log: log}
}

// OnConnectionChange recomputes the online snapshot and broadcasts it to all
// registered handles, the changed one included. The registry lock is held
// only to snapshot; sends happen outside it.
func (p *Presence) OnConnectionChange() {
	online := p.registry.Online()
	conns := p.registry.Connections()

	data, err := domain.Encode(domain.Envelope{Event: domain.EventPresence, Online: online})
	if err != nil {
		p.log.Error("encode presence snapshot", zap.Error(err))
		return
	}
	for _, c := range conns {
		if err := c.Send(data); err != nil {
			p.log.Warn("presence send failed", zap.Error(err))
		}
	}
}
