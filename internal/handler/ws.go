package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/synkr/synkr/internal/auth"
	"github.com/synkr/synkr/internal/client"
	"github.com/synkr/synkr/internal/hub"
	"github.com/synkr/synkr/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS handles WebSocket upgrade requests. The handshake must carry a
// resolvable identity; a request without one is refused before any
// registration happens.
func ServeWS(h *hub.Hub, resolver *auth.Resolver, st store.Store, sendBuffer int, maxMessageSize int64, log *zap.Logger) http.HandlerFunc {
	authorize := func(groupID, userID string) bool {
		member, err := st.IsMember(groupID, userID)
		if err != nil {
			log.Error("membership lookup failed", zap.String("group", groupID), zap.Error(err))
			return false
		}
		return member
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := resolver.ResolveIdentity(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}

		c := client.New(h, conn, userID, authorize, sendBuffer, maxMessageSize, log)
		h.OnConnectionOpen(userID, c)
		go c.ReadPump()
		go c.WritePump()
	}
}
