package runtime

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"chat-hall/errors"
)

func TestRegistry_Register_NameIsUnique(t *testing.T) {
	req := require.New(t)
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock)

	// Given alice already registered
	req.NoError(registry.Register("alice", "mb-alice"))

	// When someone registers the same name with another mailbox
	err := registry.Register("alice", "mb-impostor")

	// Then the registration is rejected and the original entry survives
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
	user, ok := registry.Lookup("alice")
	req.True(ok)
	req.Equal("mb-alice", user.Mailbox)
}

func TestRegistry_Register_StartsInLobby(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())

	// When a user registers
	req.NoError(registry.Register("alice", "mb-alice"))

	// Then they are in the lobby, not in any room
	user, ok := registry.Lookup("alice")
	req.True(ok)
	req.True(user.InLobby())
	req.Empty(registry.RoomCounts())
}

func TestRegistry_CreateRoom_CreatorBecomesMember(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("alice", "mb-alice"))

	// When alice creates a room
	req.NoError(registry.CreateRoom("general", "alice"))

	// Then she is its only member and her location matches
	user, _ := registry.Lookup("alice")
	req.Equal("general", user.CurrentRoom)
	req.Equal(map[string]int{"general": 1}, registry.RoomCounts())

	members := registry.Snapshot("general")
	req.Len(members, 1)
	req.Equal("alice", members[0].Name)
	req.Equal("mb-alice", members[0].Mailbox)
}

func TestRegistry_CreateRoom_Rejections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.Register("bob", "mb-bob"))
	req.NoError(registry.CreateRoom("general", "alice"))

	// An unregistered creator gets nothing
	req.ErrorIs(registry.CreateRoom("other", "ghost"), errors.ErrUserNotRegistered)

	// A duplicate room name is rejected
	req.ErrorIs(registry.CreateRoom("general", "bob"), errors.ErrRoomAlreadyExists)

	// A user already in a room cannot create another one
	req.ErrorIs(registry.CreateRoom("second", "alice"), errors.ErrNotInLobby)

	// And the failed attempts changed nothing
	req.Equal(map[string]int{"general": 1}, registry.RoomCounts())
}

func TestRegistry_JoinRoom_MembershipStaysSymmetric(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.Register("bob", "mb-bob"))
	req.NoError(registry.CreateRoom("red", "alice"))
	req.NoError(registry.CreateRoom("blue", "bob"))

	// Given bob left blue back to the lobby
	_, err := registry.Leave("bob")
	req.NoError(err)

	// When bob joins red
	oldRoom, err := registry.JoinRoom("red", "bob")

	// Then he came from the lobby and red holds both users
	req.NoError(err)
	req.Empty(oldRoom)
	req.Equal(2, registry.RoomCounts()["red"])

	// When bob moves from red to blue
	oldRoom, err = registry.JoinRoom("blue", "bob")

	// Then red no longer lists him anywhere
	req.NoError(err)
	req.Equal("red", oldRoom)
	req.Equal(map[string]int{"red": 1, "blue": 1}, registry.RoomCounts())
	user, _ := registry.Lookup("bob")
	req.Equal("blue", user.CurrentRoom)
}

func TestRegistry_JoinRoom_NeverCreatesImplicitly(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("alice", "mb-alice"))

	// When alice joins an unknown room
	_, err := registry.JoinRoom("nowhere", "alice")

	// Then the join fails and no room appeared
	req.ErrorIs(err, errors.ErrRoomNotFound)
	req.Empty(registry.RoomCounts())
}

func TestRegistry_Leave_FromLobbyIsRejected(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("alice", "mb-alice"))

	// When alice leaves while already in the lobby
	_, err := registry.Leave("alice")

	// Then the request is rejected
	req.ErrorIs(err, errors.ErrAlreadyInLobby)
}

func TestRegistry_Leave_EmptiedRoomSurvives(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.CreateRoom("general", "alice"))

	// When the last member leaves
	oldRoom, err := registry.Leave("alice")

	// Then the room stays listed with zero members, waiting for the janitor
	req.NoError(err)
	req.Equal("general", oldRoom)
	req.Equal(map[string]int{"general": 0}, registry.RoomCounts())
}

func TestRegistry_Deregister_FreesTheName(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.CreateRoom("general", "alice"))

	// When alice deregisters
	lastRoom, mailbox, err := registry.Deregister("alice")

	// Then her room and mailbox are reported for the goodbye notices
	req.NoError(err)
	req.Equal("general", lastRoom)
	req.Equal("mb-alice", mailbox)

	// And the name is reusable immediately
	req.NoError(registry.Register("alice", "mb-alice-2"))

	// A second deregister of a gone name reports it
	_, _, err = registry.Deregister("ghost")
	req.ErrorIs(err, errors.ErrUserNotRegistered)
}

func TestRegistry_Snapshot_SortedCopy(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(clockwork.NewFakeClock())
	req.NoError(registry.Register("zoe", "mb-zoe"))
	req.NoError(registry.Register("bob", "mb-bob"))
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.CreateRoom("general", "zoe"))
	_, err := registry.JoinRoom("general", "bob")
	req.NoError(err)
	_, err = registry.JoinRoom("general", "alice")
	req.NoError(err)

	// When snapshotting the room
	members := registry.Snapshot("general")

	// Then members come back name-sorted
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	req.Equal([]string{"alice", "bob", "zoe"}, names)

	// And an unknown room yields nothing
	req.Nil(registry.Snapshot("nowhere"))
}

func TestRegistry_ExpiredHeartbeats_PingKeepsAlive(t *testing.T) {
	req := require.New(t)
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock)
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.Register("bob", "mb-bob"))

	// Given alice keeps pinging while bob goes silent
	clock.Advance(10 * time.Second)
	registry.Heartbeat("alice")
	clock.Advance(10 * time.Second)

	// When checking with a 15s timeout
	expired := registry.ExpiredHeartbeats(15 * time.Second)

	// Then only bob is stale
	req.Equal([]string{"bob"}, expired)
}

func TestRegistry_IdleUsers_HeartbeatDoesNotCount(t *testing.T) {
	req := require.New(t)
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock)
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.Register("bob", "mb-bob"))

	// Given bob only heartbeats while alice issues a real command
	clock.Advance(61 * time.Second)
	registry.Heartbeat("bob")
	registry.Touch("alice")

	// When checking with a 60s threshold
	idle := registry.IdleUsers(60 * time.Second)

	// Then the ping-only client is idle, the active one is not
	req.Equal([]string{"bob"}, idle)
}

func TestRegistry_ReapStaleRooms_GraceAndOccupancy(t *testing.T) {
	req := require.New(t)
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock)
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.Register("bob", "mb-bob"))
	req.NoError(registry.CreateRoom("empty", "alice"))
	req.NoError(registry.CreateRoom("occupied", "bob"))
	_, err := registry.Leave("alice")
	req.NoError(err)

	// When sweeping before the grace period elapsed
	clock.Advance(30 * time.Second)
	req.Empty(registry.ReapStaleRooms(60 * time.Second))

	// When sweeping after the grace period
	clock.Advance(31 * time.Second)
	reaped := registry.ReapStaleRooms(60 * time.Second)

	// Then only the empty room is reclaimed, never the occupied one
	req.Equal([]string{"empty"}, reaped)
	req.Equal(map[string]int{"occupied": 1}, registry.RoomCounts())
}

func TestRegistry_ReapStaleRooms_ActivityResetsGrace(t *testing.T) {
	req := require.New(t)
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock)
	req.NoError(registry.Register("alice", "mb-alice"))
	req.NoError(registry.CreateRoom("general", "alice"))
	_, err := registry.Leave("alice")
	req.NoError(err)

	// Given the empty room was touched right before the sweep
	clock.Advance(59 * time.Second)
	registry.TouchRoom("general")
	clock.Advance(30 * time.Second)

	// Then the grace period restarted from the touch
	req.Empty(registry.ReapStaleRooms(60 * time.Second))
}
