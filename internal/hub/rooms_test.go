package hub

import (
	"testing"

	"github.com/synkr/synkr/internal/testutil"
)

func TestRoomsJoinLeave(t *testing.T) {
	t.Parallel()
	rooms := NewRooms()
	c1 := testutil.NewMockConn("h1")
	c2 := testutil.NewMockConn("h2")

	rooms.Join("g1", c1)
	rooms.Join("g1", c2)

	if got := len(rooms.Subscribers("g1")); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}

	rooms.Leave("g1", c1)
	subs := rooms.Subscribers("g1")
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", len(subs))
	}
	if subs[0] != Connection(c2) {
		t.Error("wrong subscriber remained after leave")
	}
}

func TestRoomsJoinIdempotent(t *testing.T) {
	t.Parallel()
	rooms := NewRooms()
	c := testutil.NewMockConn("h1")

	rooms.Join("g1", c)
	rooms.Join("g1", c)

	if got := len(rooms.Subscribers("g1")); got != 1 {
		t.Errorf("expected 1 subscriber after double join, got %d", got)
	}
}

func TestRoomsLeaveUnknownIsNoop(t *testing.T) {
	t.Parallel()
	rooms := NewRooms()
	rooms.Leave("g1", testutil.NewMockConn("ghost"))

	if got := len(rooms.Subscribers("g1")); got != 0 {
		t.Errorf("expected empty room, got %d subscribers", got)
	}
}

func TestRoomsLeaveAll(t *testing.T) {
	t.Parallel()
	rooms := NewRooms()
	c1 := testutil.NewMockConn("h1")
	c2 := testutil.NewMockConn("h2")

	rooms.Join("g1", c1)
	rooms.Join("g2", c1)
	rooms.Join("g2", c2)

	rooms.LeaveAll(c1)

	if got := len(rooms.Subscribers("g1")); got != 0 {
		t.Errorf("expected g1 empty after LeaveAll, got %d", got)
	}
	subs := rooms.Subscribers("g2")
	if len(subs) != 1 || subs[0] != Connection(c2) {
		t.Errorf("expected only h2 left in g2, got %d subscribers", len(subs))
	}
}

func TestRoomsAnyGroupIDValid(t *testing.T) {
	t.Parallel()
	rooms := NewRooms()
	c := testutil.NewMockConn("h1")

	// Room existence is a persistence-layer concept; joining an arbitrary
	// ID just creates the subscription set.
	rooms.Join("never-created-anywhere", c)
	if got := len(rooms.Subscribers("never-created-anywhere")); got != 1 {
		t.Errorf("expected 1 subscriber, got %d", got)
	}
}
