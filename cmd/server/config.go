package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=7070" validate:"min=1,max=65535"`
	Transport         string        `env:"TRANSPORT,default=tcp" validate:"oneof=tcp ws"`
	NumberOfWorkers   int           `env:"NUMBER_OF_WORKERS,default=4" validate:"min=1"`
	QueueDepth        int           `env:"QUEUE_DEPTH,default=64" validate:"min=1"`
	IngressBufferSize int           `env:"INGRESS_BUFFER_SIZE,default=256" validate:"min=1"`
	LivenessInterval  time.Duration `env:"LIVENESS_INTERVAL,default=10s"`
	HeartbeatTimeout  time.Duration `env:"HEARTBEAT_TIMEOUT,default=15s"`
	IdleInterval      time.Duration `env:"IDLE_INTERVAL,default=15s"`
	IdleThreshold     time.Duration `env:"IDLE_THRESHOLD,default=60s"`
	JanitorInterval   time.Duration `env:"JANITOR_INTERVAL,default=30s"`
	RoomGrace         time.Duration `env:"ROOM_GRACE,default=60s"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	DebugPort         int           `env:"DEBUG_PORT,default=0" validate:"min=0,max=65535"`
	CharReplacement   string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
