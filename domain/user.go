// Package domain contains core concepts of the chat broker.
// This file defines the User entity and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// User is a registered participant. The name is assigned at registration
// and never changes while the session lives. Mailbox is the opaque reply
// address owned by this user's session.
type User struct {
	Name          string
	Mailbox       string
	CurrentRoom   string // empty means "in lobby"
	LastHeartbeat time.Time
	LastActivity  time.Time
}

// InLobby reports whether the user is not currently in any room.
func (u User) InLobby() bool {
	return u.CurrentRoom == ""
}
