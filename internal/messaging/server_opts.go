package messaging

import (
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

type natsServerConfig struct {
	readyTimeout time.Duration
	options      server.Options
}

type NatsServerOpt func(*natsServerConfig)

// WithStartTimeout bounds how long Start waits for the server to accept
// connections.
func WithStartTimeout(d time.Duration) NatsServerOpt {
	return func(c *natsServerConfig) {
		c.readyTimeout = d
	}
}

// WithHost sets the interface the server listens on. Other participants
// need something other than loopback to reach it.
func WithHost(host string) NatsServerOpt {
	return func(c *natsServerConfig) {
		c.options.Host = host
	}
}

// WithPort sets the client port. -1 picks a free one.
func WithPort(port int) NatsServerOpt {
	return func(c *natsServerConfig) {
		c.options.Port = port
	}
}

// WithMaxPayload caps the size of a single message.
func WithMaxPayload(n int32) NatsServerOpt {
	return func(c *natsServerConfig) {
		c.options.MaxPayload = n
	}
}
