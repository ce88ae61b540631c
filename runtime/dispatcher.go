package runtime

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/errors"
	"chat-hall/moderation"
	"chat-hall/observability"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Dispatcher routes one parsed job to its handler. Handlers read and mutate
// state only through the registry; every response and broadcast goes out
// through the broadcaster after the registry call returned, so no handler
// ever sends while a registry lock is held.
type Dispatcher struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	censor      *moderation.Moderator
	counters    *observability.Counters
}

var _ contract.IDispatcher = (*Dispatcher)(nil)

func NewDispatcher(log *slog.Logger, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, censor *moderation.Moderator,
	counters *observability.Counters) *Dispatcher {
	return &Dispatcher{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		censor:      censor,
		counters:    counters,
	}
}

// Handle executes one job. Failure outcomes become SYSTEM error responses
// to the sender; registry state is left unchanged when a precondition is
// not met.
func (d *Dispatcher) Handle(job domain.Job) {
	// Every command except PING counts as activity. PING only feeds the
	// liveness monitor, so a client doing nothing but pinging still ages
	// out through the idle reaper.
	if job.Kind != domain.KindPing && job.Kind != domain.KindRegister {
		d.registry.Touch(job.User)
	}

	switch job.Kind {
	case domain.KindRegister:
		d.handleRegister(job)
	case domain.KindCreate:
		d.handleCreate(job)
	case domain.KindJoin:
		d.handleJoin(job)
	case domain.KindList:
		d.handleList(job)
	case domain.KindChat:
		d.handleChat(job)
	case domain.KindWho:
		d.handleWho(job)
	case domain.KindLeave:
		d.handleLeave(job)
	case domain.KindDM:
		d.handleDM(job)
	case domain.KindExit:
		d.handleExit(job)
	case domain.KindPing:
		d.registry.Heartbeat(job.User)
	case domain.KindMembers:
		d.handleMembers(job)
	default:
		d.counters.Malformed.Add(1)
		d.broadcaster.Deliver(job.ReplyAddr, domain.System("Unknown command or invalid format."))
	}
	d.counters.JobsProcessed.Add(1)
}

func (d *Dispatcher) handleRegister(job domain.Job) {
	if err := d.registry.Register(job.User, job.ReplyAddr); err != nil {
		d.broadcaster.Deliver(job.ReplyAddr, domain.SystemError("Username already taken."))
		return
	}
	d.log.Info("User registered", "user", job.User, "mailbox", job.ReplyAddr)
	d.broadcaster.Deliver(job.ReplyAddr,
		domain.System(fmt.Sprintf("Welcome %s! You are in the Lobby.", job.User)))
}

func (d *Dispatcher) handleCreate(job domain.Job) {
	err := d.registry.CreateRoom(job.Room, job.User)
	switch {
	case stderrors.Is(err, errors.ErrUserNotRegistered):
		d.broadcaster.Deliver(job.ReplyAddr, domain.SystemError("User not registered."))
	case stderrors.Is(err, errors.ErrRoomAlreadyExists):
		d.broadcaster.Deliver(job.ReplyAddr,
			domain.SystemError(fmt.Sprintf("Room already exists: %s", job.Room)))
	case stderrors.Is(err, errors.ErrNotInLobby):
		d.broadcaster.Deliver(job.ReplyAddr,
			domain.SystemError("You must be in the Lobby to create a room."))
	case err == nil:
		d.log.Info("Room created", "room", job.Room, "creator", job.User)
		d.broadcaster.Deliver(job.ReplyAddr, domain.JoinSuccess(job.Room))
	}
}

func (d *Dispatcher) handleJoin(job domain.Job) {
	_, err := d.registry.JoinRoom(job.Room, job.User)
	switch {
	case stderrors.Is(err, errors.ErrUserNotRegistered):
		d.broadcaster.Deliver(job.ReplyAddr, domain.SystemError("User not found."))
		return
	case stderrors.Is(err, errors.ErrRoomNotFound):
		d.broadcaster.Deliver(job.ReplyAddr, domain.SystemError("Room not found."))
		return
	}
	d.log.Info("User joined room", "user", job.User, "room", job.Room)
	d.broadcaster.Deliver(job.ReplyAddr, domain.JoinSuccess(job.Room))
	d.broadcaster.BroadcastToRoom(job.Room, job.User,
		domain.System(fmt.Sprintf("%s has joined.", job.User)))
}

func (d *Dispatcher) handleList(job domain.Job) {
	counts := d.registry.RoomCounts()
	names := lo.Keys(counts)
	sort.Strings(names)

	entries := lo.Map(names, func(name string, _ int) string {
		return fmt.Sprintf("%s(%d)", name, counts[name])
	})
	d.broadcaster.Deliver(job.ReplyAddr,
		domain.List("Available Rooms: "+strings.Join(entries, " ")))
}

func (d *Dispatcher) handleChat(job domain.Job) {
	user, ok := d.registry.Lookup(job.User)
	if !ok || job.Room == "" || user.CurrentRoom != job.Room {
		d.broadcaster.Deliver(job.ReplyAddr, domain.SystemError("You must be in a room to chat."))
		return
	}

	text := d.censorText(job.Text)
	d.registry.TouchRoom(job.Room)
	d.broadcaster.BroadcastToRoom(job.Room, job.User,
		domain.Chat(fmt.Sprintf("%s: %s", job.User, text)))
}

func (d *Dispatcher) handleWho(job domain.Job) {
	user, ok := d.registry.Lookup(job.User)
	if !ok {
		return
	}
	if user.InLobby() {
		d.broadcaster.Deliver(job.ReplyAddr, domain.SystemError("You are in the Lobby."))
		return
	}

	members := d.registry.Snapshot(user.CurrentRoom)
	names := lo.Map(members, func(m contract.Member, _ int) string { return m.Name })
	d.broadcaster.Deliver(job.ReplyAddr,
		domain.System(fmt.Sprintf("Users in %s: %s", user.CurrentRoom, strings.Join(names, " "))))
}

func (d *Dispatcher) handleLeave(job domain.Job) {
	oldRoom, err := d.registry.Leave(job.User)
	if err != nil {
		d.broadcaster.Deliver(job.ReplyAddr, domain.SystemError("You are already in the Lobby."))
		return
	}
	d.log.Info("User left room", "user", job.User, "room", oldRoom)
	d.broadcaster.Deliver(job.ReplyAddr, domain.JoinSuccess(""))
	d.broadcaster.BroadcastToRoom(oldRoom, job.User,
		domain.System(fmt.Sprintf("%s has left the room.", job.User)))
}

func (d *Dispatcher) handleDM(job domain.Job) {
	target, ok := d.registry.Lookup(job.Target)
	if !ok {
		d.broadcaster.Deliver(job.ReplyAddr,
			domain.SystemError(fmt.Sprintf("User %s not found.", job.Target)))
		return
	}

	text := d.censorText(job.Text)
	d.broadcaster.Deliver(target.Mailbox,
		domain.DM(fmt.Sprintf("%s: %s", job.User, text)))
	d.broadcaster.Deliver(job.ReplyAddr,
		domain.System(fmt.Sprintf("DM sent to %s.", job.Target)))
}

func (d *Dispatcher) handleExit(job domain.Job) {
	lastRoom, mailbox, err := d.registry.Deregister(job.User)
	if err != nil {
		return
	}
	d.log.Info("User disconnected", "user", job.User, "room", lastRoom)
	d.broadcaster.Deliver(mailbox, domain.System("Goodbye!"))
	d.broadcaster.BroadcastToRoom(lastRoom, job.User,
		domain.System(fmt.Sprintf("%s has disconnected.", job.User)))
}

func (d *Dispatcher) handleMembers(job domain.Job) {
	names := d.registry.OnlineUsers()
	d.broadcaster.Deliver(job.ReplyAddr,
		domain.System("Online users: "+strings.Join(names, " ")))
}

func (d *Dispatcher) censorText(text string) string {
	if d.censor == nil {
		return text
	}
	censored := d.censor.Censor(text)
	if censored != text {
		d.counters.MessagesCensored.Add(1)
	}
	return censored
}
