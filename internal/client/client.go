package client

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/synkr/synkr/internal/domain"
	"github.com/synkr/synkr/internal/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ErrSlowClient is returned by Send when the outbound buffer is full.
var ErrSlowClient = errors.New("client: send buffer full")

// AuthorizeJoin reports whether a user may join a group room. The hub itself
// performs no authorization; this callback backs it with the store's
// membership data.
type AuthorizeJoin func(groupID, userID string) bool

// Client is one authenticated WebSocket connection. It implements
// hub.Connection: Send queues a frame without blocking so one slow peer
// cannot stall delivery to others.
type Client struct {
	hub            *hub.Hub
	conn           *websocket.Conn
	send           chan []byte
	userID         string
	authorize      AuthorizeJoin
	maxMessageSize int64
	log            *zap.Logger
}

// New creates a Client. The caller resolved userID from the handshake before
// the connection reached Open.
func New(h *hub.Hub, conn *websocket.Conn, userID string, authorize AuthorizeJoin, sendBuffer int, maxMessageSize int64, log *zap.Logger) *Client {
	return &Client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		userID:         userID,
		authorize:      authorize,
		maxMessageSize: maxMessageSize,
		log:            log,
	}
}

// UserID returns the authenticated user this connection belongs to.
func (c *Client) UserID() string {
	return c.userID
}

// Send queues a frame for the peer. A full buffer means the peer is not
// keeping up; the frame is dropped for this handle and an error returned.
func (c *Client) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSlowClient
	}
}

// ReadPump reads frames from the peer and dispatches them. It drives the
// connection lifecycle: when it returns, the connection is closed and torn
// down through the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.OnConnectionClose(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read error", zap.String("user", c.userID), zap.Error(err))
			}
			return
		}
		c.handleFrame(data)
	}
}

// WritePump writes queued frames to the peer and keeps the connection alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(data []byte) {
	if !gjson.ValidBytes(data) {
		c.sendError("invalid JSON")
		return
	}

	event := gjson.GetBytes(data, "event").String()
	switch event {
	case domain.EventJoinGroup:
		groupID := gjson.GetBytes(data, "groupId").String()
		if groupID == "" {
			c.sendError("groupId required")
			return
		}
		if c.authorize != nil && !c.authorize(groupID, c.userID) {
			c.sendError("not a member of group " + groupID)
			return
		}
		c.hub.JoinGroup(groupID, c)

	case domain.EventLeaveGroup:
		groupID := gjson.GetBytes(data, "groupId").String()
		if groupID == "" {
			c.sendError("groupId required")
			return
		}
		c.hub.LeaveGroup(groupID, c)

	default:
		c.sendError("unknown event: " + event)
	}
}

func (c *Client) sendError(message string) {
	data, err := domain.Encode(domain.Envelope{Event: domain.EventError, Message: message})
	if err != nil {
		return
	}
	if err := c.Send(data); err != nil {
		c.log.Warn("error frame dropped", zap.String("user", c.userID), zap.Error(err))
	}
}
