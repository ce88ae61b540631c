package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-hall/broadcast"
	"chat-hall/domain"
	"chat-hall/moderation"
	"chat-hall/observability"
	"chat-hall/runtime"
	"chat-hall/runtime/workers"
	"chat-hall/transport/channel"
)

type fixture struct {
	transport    *channel.Transport
	registry     *runtime.Registry
	counters     *observability.Counters
	orchestrator *runtime.Orchestrator
	done         chan struct{}
	cancel       context.CancelFunc
}

func startBroker(t *testing.T, settings runtime.Settings) *fixture {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	clock := clockwork.NewRealClock()
	transport := channel.NewTransport(64)
	counters := observability.NewCounters()
	registry := runtime.NewRegistry(clock)
	broadcaster := broadcast.NewBroadcaster(log, registry, transport, counters)
	censor, err := moderation.NewModerator([]string{"noob"}, '*')
	req.NoError(err)
	dispatcher := runtime.NewDispatcher(log, registry, broadcaster, censor, counters)
	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	orchestrator := runtime.NewOrchestrator(log, supervisor, registry, broadcaster,
		dispatcher, counters, transport, clock, settings)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = orchestrator.Start(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		orchestrator.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Broker did not shut down in time")
		}
	})

	return &fixture{
		transport:    transport,
		registry:     registry,
		counters:     counters,
		orchestrator: orchestrator,
		done:         done,
		cancel:       cancel,
	}
}

// quietSettings keeps every sweeper far away so only the commands under
// test touch the registry.
func quietSettings() runtime.Settings {
	settings := runtime.DefaultSettings()
	settings.LivenessInterval = time.Hour
	settings.IdleInterval = time.Hour
	settings.JanitorInterval = time.Hour
	settings.TelemetryInterval = time.Hour
	return settings
}

func awaitResponse(t *testing.T, mailbox <-chan domain.Response) domain.Response {
	t.Helper()
	select {
	case resp := <-mailbox:
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a response")
		return domain.Response{}
	}
}

func assertSilent(t *testing.T, mailbox <-chan domain.Response) {
	t.Helper()
	select {
	case resp := <-mailbox:
		t.Fatalf("Expected no message, got %v", resp)
	case <-time.After(100 * time.Millisecond):
	}
}

func Test_Scenario_FullSession(t *testing.T) {
	req := require.New(t)
	broker := startBroker(t, quietSettings())

	alice := broker.transport.Open("mb-alice")
	bob := broker.transport.Open("mb-bob")

	// Registration puts both users in the lobby
	broker.transport.Submit("REGISTER|mb-alice|alice")
	req.Equal(domain.System("Welcome alice! You are in the Lobby."), awaitResponse(t, alice))

	broker.transport.Submit("REGISTER|mb-bob|bob")
	req.Equal(domain.System("Welcome bob! You are in the Lobby."), awaitResponse(t, bob))

	// A duplicate name is rejected without touching the original
	impostor := broker.transport.Open("mb-impostor")
	broker.transport.Submit("REGISTER|mb-impostor|alice")
	req.Equal(domain.SystemError("Username already taken."), awaitResponse(t, impostor))

	// Alice creates a room; bob joins and the room hears about it
	broker.transport.Submit("CREATE|mb-alice|general|alice")
	req.Equal(domain.JoinSuccess("general"), awaitResponse(t, alice))

	broker.transport.Submit("JOIN|mb-bob|general|bob")
	req.Equal(domain.JoinSuccess("general"), awaitResponse(t, bob))
	req.Equal(domain.System("bob has joined."), awaitResponse(t, alice))

	// Room listing shows the member count
	broker.transport.Submit("LIST|mb-bob|bob")
	req.Equal(domain.List("Available Rooms: general(2)"), awaitResponse(t, bob))

	// Chat reaches the other member only, with moderation applied
	broker.transport.Submit("CHAT|mb-bob|general|bob|hi you noob")
	req.Equal(domain.Chat("bob: hi you ****"), awaitResponse(t, alice))
	assertSilent(t, bob)

	// WHO lists the current room occupants
	broker.transport.Submit("WHO|mb-alice|alice")
	req.Equal(domain.System("Users in general: alice bob"), awaitResponse(t, alice))

	// A direct message reaches its target plus a confirmation
	broker.transport.Submit("DM|mb-alice|bob|alice|psst")
	req.Equal(domain.DM("alice: psst"), awaitResponse(t, bob))
	req.Equal(domain.System("DM sent to bob."), awaitResponse(t, alice))

	// MEMBERS lists everyone online
	broker.transport.Submit("MEMBERS|mb-bob")
	req.Equal(domain.System("Online users: alice bob"), awaitResponse(t, bob))

	// A malformed line is answered directly and never crashes the broker
	broker.transport.Submit("CHAT|mb-bob|general|bob")
	req.Equal(domain.System("Unknown command or invalid format."), awaitResponse(t, bob))

	// Bob leaves; alice hears it, bob lands in the lobby
	broker.transport.Submit("LEAVE|mb-bob|bob")
	req.Equal(domain.JoinSuccess(""), awaitResponse(t, bob))
	req.Equal(domain.System("bob has left the room."), awaitResponse(t, alice))

	// Alice exits; her name becomes free again
	broker.transport.Submit("EXIT|mb-alice|alice")
	req.Equal(domain.System("Goodbye!"), awaitResponse(t, alice))

	alice2 := broker.transport.Open("mb-alice-2")
	broker.transport.Submit("REGISTER|mb-alice-2|alice")
	req.Equal(domain.System("Welcome alice! You are in the Lobby."), awaitResponse(t, alice2))
}

func Test_Scenario_HeartbeatTimeout(t *testing.T) {
	req := require.New(t)
	settings := quietSettings()
	settings.LivenessInterval = 50 * time.Millisecond
	settings.HeartbeatTimeout = 150 * time.Millisecond
	broker := startBroker(t, settings)

	alice := broker.transport.Open("mb-alice")
	bob := broker.transport.Open("mb-bob")

	broker.transport.Submit("REGISTER|mb-alice|alice")
	req.Equal(domain.System("Welcome alice! You are in the Lobby."), awaitResponse(t, alice))
	broker.transport.Submit("REGISTER|mb-bob|bob")
	req.Equal(domain.System("Welcome bob! You are in the Lobby."), awaitResponse(t, bob))

	broker.transport.Submit("CREATE|mb-alice|general|alice")
	req.Equal(domain.JoinSuccess("general"), awaitResponse(t, alice))
	broker.transport.Submit("JOIN|mb-bob|general|bob")
	req.Equal(domain.JoinSuccess("general"), awaitResponse(t, bob))
	req.Equal(domain.System("bob has joined."), awaitResponse(t, alice))

	// Given alice keeps pinging while bob goes completely silent
	stopPinging := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopPinging:
				return
			case <-ticker.C:
				broker.transport.Submit("PING|mb-alice|alice")
			}
		}
	}()
	defer close(stopPinging)

	// Then the monitor evicts bob and alice hears the timeout wording
	req.Equal(domain.System("bob has disconnected (timeout)."), awaitResponse(t, alice))
	req.Eventually(func() bool {
		_, ok := broker.registry.Lookup("bob")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
	req.Eventually(func() bool {
		return broker.counters.Snapshot().TimeoutEvicted == 1
	}, 2*time.Second, 20*time.Millisecond)

	_, ok := broker.registry.Lookup("alice")
	req.True(ok)
}

func Test_Scenario_IdleKickAndRoomReaping(t *testing.T) {
	req := require.New(t)
	settings := quietSettings()
	settings.IdleInterval = 50 * time.Millisecond
	settings.IdleThreshold = 200 * time.Millisecond
	settings.JanitorInterval = 50 * time.Millisecond
	settings.RoomGrace = 100 * time.Millisecond
	broker := startBroker(t, settings)

	zoe := broker.transport.Open("mb-zoe")

	broker.transport.Submit("REGISTER|mb-zoe|zoe")
	req.Equal(domain.System("Welcome zoe! You are in the Lobby."), awaitResponse(t, zoe))
	broker.transport.Submit("CREATE|mb-zoe|corner|zoe")
	req.Equal(domain.JoinSuccess("corner"), awaitResponse(t, zoe))

	// Given zoe only pings from now on
	stopPinging := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopPinging:
				return
			case <-ticker.C:
				broker.transport.Submit("PING|mb-zoe|zoe")
			}
		}
	}()
	defer close(stopPinging)

	// Then pinging does not save her from the idle reaper
	req.Equal(domain.System("You were disconnected due to inactivity."), awaitResponse(t, zoe))
	req.Eventually(func() bool {
		_, ok := broker.registry.Lookup("zoe")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)

	// And her emptied room is reclaimed once the grace period passes
	req.Eventually(func() bool {
		_, listed := broker.registry.RoomCounts()["corner"]
		return !listed
	}, 2*time.Second, 20*time.Millisecond)
	req.Equal(uint64(1), broker.counters.Snapshot().IdleEvicted)
}
