package domain

import "github.com/google/uuid"

// Kind identifies a client command on the wire.
type Kind string

const (
	KindRegister Kind = "REGISTER"
	KindCreate   Kind = "CREATE"
	KindJoin     Kind = "JOIN"
	KindList     Kind = "LIST"
	KindChat     Kind = "CHAT"
	KindWho      Kind = "WHO"
	KindLeave    Kind = "LEAVE"
	KindDM       Kind = "DM"
	KindExit     Kind = "EXIT"
	KindPing     Kind = "PING"
	KindMembers  Kind = "MEMBERS"
	KindUnknown  Kind = "UNKNOWN"
)

// Job is one parsed command ready for a pool worker. ReplyAddr is the
// sender's mailbox; it doubles as the affinity key that pins all jobs of
// one sender to one worker.
type Job struct {
	ID        uuid.UUID
	Kind      Kind
	ReplyAddr string
	User      string
	Room      string
	Target    string
	Text      string
}
