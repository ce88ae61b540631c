package main

import (
	"chat-hall/broadcast"
	"chat-hall/contract"
	"chat-hall/internal"
	"chat-hall/moderation"
	"chat-hall/observability"
	"chat-hall/runtime"
	"chat-hall/runtime/workers"
	"chat-hall/transport/tcpline"
	"chat-hall/transport/ws"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the broker lifecycle, and
// centralizes error reporting: deferred cleanups execute before the
// process exits, and the entry point stays testable.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censorRune, err := config.CharacterRune()
	if err != nil {
		return err
	}

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Transport
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	transport, serve, err := buildTransport(ctx, log, config, address)
	if err != nil {
		return err
	}

	// 4. Broker components
	clock := clockwork.NewRealClock()
	registry := runtime.NewRegistry(clock)
	counters := observability.NewCounters()
	broadcaster := broadcast.NewBroadcaster(log, registry, transport, counters)

	moderator, err := moderation.NewModerator(moderation.DefaultWords(), censorRune)
	if err != nil {
		return fmt.Errorf("moderation setup: %w", err)
	}

	dispatcher := runtime.NewDispatcher(log, registry, broadcaster, moderator, counters)
	sup := workers.NewSupervisor(log, config.RestartInterval)

	orchestrator := runtime.NewOrchestrator(log, sup, registry, broadcaster,
		dispatcher, counters, transport, clock, runtime.Settings{
			Workers:           config.NumberOfWorkers,
			QueueDepth:        config.QueueDepth,
			LivenessInterval:  config.LivenessInterval,
			HeartbeatTimeout:  config.HeartbeatTimeout,
			IdleInterval:      config.IdleInterval,
			IdleThreshold:     config.IdleThreshold,
			JanitorInterval:   config.JanitorInterval,
			RoomGrace:         config.RoomGrace,
			TelemetryInterval: config.TelemetryInterval,
		})

	// 5. Optional debug dashboard
	if config.DebugPort > 0 {
		debugServer := internal.StartDebugServer(log, config.DebugPort, registry, counters)
		defer func() { _ = debugServer.Close() }()
	}

	// 6. Serve the transport, run the broker until signalled
	errChan := make(chan error, 1)
	go func() {
		log.Info("Transport listening", "transport", config.Transport, "address", address)
		if err := serve(); err != nil {
			errChan <- fmt.Errorf("transport error: %w", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		_ = orchestrator.Start(ctx)
		close(done)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		orchestrator.Stop()
		<-done
		return err
	}

	// 7. Final Cleanup
	orchestrator.Stop()
	<-done
	log.Info("Broker stopped cleanly")
	return nil
}

// buildTransport returns the selected transport plus its blocking serve
// function.
func buildTransport(ctx context.Context, log *slog.Logger, config Config, address string) (contract.Transport, func() error, error) {
	switch config.Transport {
	case "ws":
		server := ws.NewServer(log, config.IngressBufferSize)
		httpServer := &http.Server{Addr: address, Handler: server}
		go func() {
			<-ctx.Done()
			_ = httpServer.Close()
		}()
		return server, func() error {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}, nil
	default:
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to listen on %s: %w", address, err)
		}
		server := tcpline.NewServer(log, listener, config.IngressBufferSize)
		return server, func() error { return server.Serve(ctx) }, nil
	}
}
