package domain

import "time"

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"fullName,omitempty"`
	ProfilePic   string `json:"profilePic,omitempty"`
	PasswordHash string `json:"-"`
}

// Group is a named chat group. The admin is always a member.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	AdminID     string   `json:"adminId"`
	Members     []string `json:"members,omitempty"`
}

// Message is a persisted chat message, direct (RecipientID set) or group
// (GroupID set). Media URLs are already resolved by the media store before
// the message is constructed.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId,omitempty"`
	GroupID     string    `json:"groupId,omitempty"`
	Text        string    `json:"text,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
