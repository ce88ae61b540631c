package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"127.0.0.1:7070"`
	// CLIENT_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"CLIENT_COLOURS" default:"true"`
	// PING_INTERVAL must stay well under the server heartbeat timeout
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"5s"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"3s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
