package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string           `json:"tick_interval"`
	Nats         NatsConfig       `json:"nats"`
	Session      SessionConfig    `json:"session"`
	Storage      StorageConfig    `json:"storage"`
	Listeners    []ListenerConfig `json:"listeners"`
	API          APIConfig        `json:"api"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < 100*time.Millisecond || d > time.Minute {
			el.Add(fmt.Errorf("tick_interval must be between 100ms and 1m"))
		}
	}

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(c.Nats.validate())
	el.Add(c.Session.validate())
	el.Add(c.Storage.validate())
	el.Add(c.API.validate())

	return el.Err()
}

// tickInterval is the configured interval, zero for the driver default.
func (c *Config) tickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0
	}
	return d
}
