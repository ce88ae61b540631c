package domain

import "time"

type Set map[string]struct{}

// Room groups users under a unique name. Members holds user names only;
// mailbox resolution always goes through the registry sessions so a
// connection is managed in a single place.
type Room struct {
	Name         string
	Members      Set
	LastActiveAt time.Time
}

func NewRoom(name string, now time.Time) *Room {
	return &Room{
		Name:         name,
		Members:      make(Set),
		LastActiveAt: now,
	}
}

func (r *Room) Empty() bool {
	return len(r.Members) == 0
}
