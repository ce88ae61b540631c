// Package runtime owns the broker state and its orchestration: the user and
// room registry, the pool workers consuming parsed jobs, and the periodic
// sweepers. It contains no transport or UI logic.
package runtime

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Registry is the single authority over users and rooms. Two mutexes guard
// the two maps; every compound operation acquires usersMu before roomsMu,
// never the reverse. Nothing under either lock performs mailbox I/O:
// mutating calls validate, mutate, copy out what the caller needs for
// side effects, and release before any send happens.
type Registry struct {
	usersMu sync.Mutex // level 1, always locked first
	roomsMu sync.Mutex // level 2, always locked second
	users   map[string]*domain.User
	rooms   map[string]*domain.Room
	clock   clockwork.Clock
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		users: make(map[string]*domain.User),
		rooms: make(map[string]*domain.Room),
		clock: clock,
	}
}

// Register adds a user to the lobby. The name must be unused; a rejected
// registration leaves the existing entry untouched.
func (r *Registry) Register(name, mailbox string) error {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if _, taken := r.users[name]; taken {
		return errors.ErrUserAlreadyExists
	}
	now := r.clock.Now()
	r.users[name] = &domain.User{
		Name:          name,
		Mailbox:       mailbox,
		LastHeartbeat: now,
		LastActivity:  now,
	}
	return nil
}

// CreateRoom introduces a room and moves its creator into it. The creator
// must be registered and in the lobby; JOIN never creates rooms implicitly.
func (r *Registry) CreateRoom(room, creator string) error {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	user, ok := r.users[creator]
	if !ok {
		return errors.ErrUserNotRegistered
	}
	if _, exists := r.rooms[room]; exists {
		return errors.ErrRoomAlreadyExists
	}
	if !user.InLobby() {
		return errors.ErrNotInLobby
	}

	created := domain.NewRoom(room, r.clock.Now())
	created.Members[creator] = struct{}{}
	r.rooms[room] = created
	user.CurrentRoom = room
	return nil
}

// JoinRoom moves a user into an existing room, detaching them from their
// previous room first so membership stays symmetric. Returns the room the
// user came from (empty for the lobby).
func (r *Registry) JoinRoom(room, user string) (string, error) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	joining, ok := r.users[user]
	if !ok {
		return "", errors.ErrUserNotRegistered
	}
	target, ok := r.rooms[room]
	if !ok {
		return "", errors.ErrRoomNotFound
	}

	now := r.clock.Now()
	oldRoom := joining.CurrentRoom
	if prev, ok := r.rooms[oldRoom]; ok {
		delete(prev.Members, user)
		prev.LastActiveAt = now
	}

	target.Members[user] = struct{}{}
	target.LastActiveAt = now
	joining.CurrentRoom = room
	return oldRoom, nil
}

// Leave puts a user back into the lobby. The emptied room is left for the
// janitor; rooms are never reclaimed synchronously.
func (r *Registry) Leave(user string) (string, error) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	leaving, ok := r.users[user]
	if !ok {
		return "", errors.ErrUserNotRegistered
	}
	if leaving.InLobby() {
		return "", errors.ErrAlreadyInLobby
	}

	oldRoom := leaving.CurrentRoom
	if prev, ok := r.rooms[oldRoom]; ok {
		delete(prev.Members, user)
		prev.LastActiveAt = r.clock.Now()
	}
	leaving.CurrentRoom = ""
	return oldRoom, nil
}

// Deregister fully removes a user so the name becomes reusable. Returns the
// room the user was in and their mailbox for post-lock notifications.
func (r *Registry) Deregister(user string) (string, string, error) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	leaving, ok := r.users[user]
	if !ok {
		return "", "", errors.ErrUserNotRegistered
	}

	lastRoom := leaving.CurrentRoom
	mailbox := leaving.Mailbox
	if prev, ok := r.rooms[lastRoom]; ok {
		delete(prev.Members, user)
		prev.LastActiveAt = r.clock.Now()
	}
	delete(r.users, user)
	return lastRoom, mailbox, nil
}

// Lookup returns a copy of a user entry.
func (r *Registry) Lookup(user string) (domain.User, bool) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	found, ok := r.users[user]
	if !ok {
		return domain.User{}, false
	}
	return *found, true
}

// Snapshot copies out a room's members, name-sorted, with their mailboxes
// resolved. Callers iterate the copy outside any lock.
func (r *Registry) Snapshot(room string) []contract.Member {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	found, ok := r.rooms[room]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(found.Members))
	for name := range found.Members {
		names = append(names, name)
	}
	sort.Strings(names)

	members := make([]contract.Member, 0, len(names))
	for _, name := range names {
		if user, ok := r.users[name]; ok {
			members = append(members, contract.Member{Name: name, Mailbox: user.Mailbox})
		}
	}
	return members
}

// RoomCounts returns member counts per room.
func (r *Registry) RoomCounts() map[string]int {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	counts := make(map[string]int, len(r.rooms))
	for name, room := range r.rooms {
		counts[name] = len(room.Members)
	}
	return counts
}

// OnlineUsers returns all registered names, sorted.
func (r *Registry) OnlineUsers() []string {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	names := make([]string, 0, len(r.users))
	for name := range r.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Touch stamps a user's last activity. Any handled command counts.
func (r *Registry) Touch(user string) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if found, ok := r.users[user]; ok {
		found.LastActivity = r.clock.Now()
	}
}

// TouchRoom stamps a room's last activity.
func (r *Registry) TouchRoom(room string) {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	if found, ok := r.rooms[room]; ok {
		found.LastActiveAt = r.clock.Now()
	}
}

// Heartbeat stamps a user's liveness signal, distinct from activity.
func (r *Registry) Heartbeat(user string) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if found, ok := r.users[user]; ok {
		found.LastHeartbeat = r.clock.Now()
	}
}

// ExpiredHeartbeats snapshots the names whose heartbeat age exceeds the
// timeout. The caller acts on the copy and deregisters afterwards, so a
// name may already be gone by then; Deregister tolerates that.
func (r *Registry) ExpiredHeartbeats(olderThan time.Duration) []string {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	now := r.clock.Now()
	var expired []string
	for name, user := range r.users {
		if now.Sub(user.LastHeartbeat) > olderThan {
			expired = append(expired, name)
		}
	}
	sort.Strings(expired)
	return expired
}

// IdleUsers snapshots names whose last activity is older than the threshold.
func (r *Registry) IdleUsers(olderThan time.Duration) []string {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	now := r.clock.Now()
	var idle []string
	for name, user := range r.users {
		if now.Sub(user.LastActivity) > olderThan {
			idle = append(idle, name)
		}
	}
	sort.Strings(idle)
	return idle
}

// ReapStaleRooms deletes rooms that are empty and have been inactive longer
// than the grace period, returning the deleted names. A non-empty room is
// never deleted regardless of age.
func (r *Registry) ReapStaleRooms(grace time.Duration) []string {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	now := r.clock.Now()
	var reaped []string
	for name, room := range r.rooms {
		if room.Empty() && now.Sub(room.LastActiveAt) > grace {
			reaped = append(reaped, name)
		}
	}
	for _, name := range reaped {
		delete(r.rooms, name)
	}
	sort.Strings(reaped)
	return reaped
}
