package driver

import (
	"time"

	"github.com/pixil98/go-manhunt/internal/transport"
)

type DriverOpt func(*Driver)

func WithInterval(interval time.Duration) DriverOpt {
	return func(d *Driver) {
		d.interval = interval
	}
}

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) DriverOpt {
	return func(d *Driver) {
		d.now = now
	}
}

// WithTicks drives the tick loop from ticks instead of an internal ticker.
func WithTicks(ticks <-chan time.Time) DriverOpt {
	return func(d *Driver) {
		d.ticks = ticks
	}
}

// WithPending queues messages that arrived before the driver was created.
func WithPending(envs []transport.Envelope) DriverOpt {
	return func(d *Driver) {
		d.pending = append(d.pending, envs...)
	}
}
