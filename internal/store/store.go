package store

import (
	"errors"

	"github.com/synkr/synkr/internal/domain"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when a unique constraint would be violated, such
// as adding a user to a group twice.
var ErrDuplicate = errors.New("store: duplicate")

// Store defines the persistence interface for users, groups, and messages.
type Store interface {
	// CreateUser persists a new user.
	CreateUser(u domain.User) error
	// UserByUsername looks a user up by username.
	UserByUsername(username string) (domain.User, error)
	// UserByID looks a user up by ID.
	UserByID(id string) (domain.User, error)
	// Users returns all users except the given one, for the sidebar listing.
	Users(excludeID string) ([]domain.User, error)

	// CreateGroup persists a group and its initial member set.
	CreateGroup(g domain.Group) error
	// GroupByID returns a group with its members populated.
	GroupByID(id string) (domain.Group, error)
	// GroupsFor returns the groups the user belongs to.
	GroupsFor(userID string) ([]domain.Group, error)
	// AddMember adds a user to a group.
	AddMember(groupID, userID string) error
	// IsMember reports whether the user belongs to the group.
	IsMember(groupID, userID string) (bool, error)

	// SaveMessage persists a direct or group message.
	SaveMessage(m domain.Message) error
	// DirectHistory returns the two-party conversation, oldest first.
	DirectHistory(userA, userB string, limit int) ([]domain.Message, error)
	// GroupHistory returns a group's messages, oldest first.
	GroupHistory(groupID string, limit int) ([]domain.Message, error)

	// Close releases any resources held by the store.
	Close() error
}
