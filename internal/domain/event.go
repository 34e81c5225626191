package domain

import "encoding/json"

// Event names used on the WebSocket wire.
const (
	EventPresence      = "presence"
	EventDirectMessage = "directMessage"
	EventGroupMessage  = "groupMessage"
	EventJoinGroup     = "joinGroup"
	EventLeaveGroup    = "leaveGroup"
	EventError         = "error"
)

// Envelope is the frame pushed to a connected client.
type Envelope struct {
	Event   string          `json:"event"`
	Online  []string        `json:"online,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OutboundMessage is an already-persisted message handed to the router for
// real-time delivery. Exactly one of RecipientID and GroupID is set; the
// payload is opaque to the router.
type OutboundMessage struct {
	SenderID    string          `json:"senderId"`
	RecipientID string          `json:"recipientId,omitempty"`
	GroupID     string          `json:"groupId,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// IsGroup reports whether the message targets a group room rather than a
// single recipient.
func (m OutboundMessage) IsGroup() bool {
	return m.GroupID != ""
}

// Encode serializes a value to JSON bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
