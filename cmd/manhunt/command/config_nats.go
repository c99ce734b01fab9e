package command

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-service"

	"github.com/pixil98/go-manhunt/internal/driver"
	"github.com/pixil98/go-manhunt/internal/messaging"
)

// NatsConfig picks the bus participants meet on. With a url the process
// joins an existing NATS server; without one it embeds its own, which other
// participants can then point their url at.
type NatsConfig struct {
	URL          string `json:"url"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
	PeerTimeout  string `json:"peer_timeout"`
	// MaxPayload caps message size on the embedded server. Larger final
	// reports are split to fit.
	MaxPayload int32 `json:"max_payload"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if n.URL != "" {
		if _, err := url.Parse(n.URL); err != nil {
			el.Add(fmt.Errorf("parsing url: %w", err))
		}
		if n.Host != "" || n.Port != 0 {
			el.Add(fmt.Errorf("host and port only apply to the embedded server, not with url"))
		}
	}

	if n.URL != "" && n.MaxPayload != 0 {
		el.Add(fmt.Errorf("max_payload only applies to the embedded server"))
	}
	if n.MaxPayload < 0 {
		el.Add(fmt.Errorf("max_payload must not be negative"))
	}

	if n.Port < -1 || n.Port > 65535 {
		el.Add(fmt.Errorf("port must be between -1 and 65535"))
	}

	for name, v := range map[string]string{"start_timeout": n.StartTimeout, "peer_timeout": n.PeerTimeout} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", name, err))
		}
	}

	return el.Err()
}

// buildBus returns the bus and the worker that keeps it connected.
func (n *NatsConfig) buildBus() (driver.Bus, service.Worker, error) {
	if n.URL != "" {
		c := messaging.NewNatsClient(n.URL, "manhunt")
		return c, c, nil
	}

	s, err := n.buildNatsServer()
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

func (n *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if n.StartTimeout != "" {
		d, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if n.Host != "" {
		opts = append(opts, messaging.WithHost(n.Host))
	}
	if n.Port != 0 {
		opts = append(opts, messaging.WithPort(n.Port))
	}
	if n.MaxPayload > 0 {
		opts = append(opts, messaging.WithMaxPayload(n.MaxPayload))
	}

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	return s, nil
}

func (n *NatsConfig) peerTimeout() time.Duration {
	d, err := time.ParseDuration(n.PeerTimeout)
	if err != nil {
		return 0
	}
	return d
}
