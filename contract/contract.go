//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hall/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sender delivers one response to a mailbox address. Implementations must
// not block: a full or missing mailbox returns an error immediately so a
// slow peer can never stall a worker or a sweeper.
type Sender interface {
	TrySend(addr string, resp domain.Response) error
}

// Receiver yields raw command lines from the ingress side of a transport.
type Receiver interface {
	Receive(ctx context.Context) (string, error)
}

// Transport is any reliable point-to-point delivery mechanism with an
// addressable mailbox per participant.
type Transport interface {
	Sender
	Receiver
}

// Member is one room occupant copied out of the registry for post-lock I/O.
type Member struct {
	Name    string
	Mailbox string
}

// IRegistry exposes compound, invariant-preserving operations over the
// user and room state. No raw map access leaks out of it.
type IRegistry interface {
	Register(name, mailbox string) error
	CreateRoom(room, creator string) error
	JoinRoom(room, user string) (oldRoom string, err error)
	Leave(user string) (oldRoom string, err error)
	Deregister(user string) (lastRoom, mailbox string, err error)
	Lookup(user string) (domain.User, bool)
	Snapshot(room string) []Member
	RoomCounts() map[string]int
	OnlineUsers() []string
	Touch(user string)
	TouchRoom(room string)
	Heartbeat(user string)
	ExpiredHeartbeats(olderThan time.Duration) []string
	IdleUsers(olderThan time.Duration) []string
	ReapStaleRooms(grace time.Duration) []string
}

// IBroadcaster fans one response out to a room, or to a single mailbox.
type IBroadcaster interface {
	BroadcastToRoom(room, excludeUser string, resp domain.Response)
	Deliver(addr string, resp domain.Response)
}

type IDispatcher interface {
	Handle(job domain.Job)
}
