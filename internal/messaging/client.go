package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsClient connects to a NATS server someone else runs.
type NatsClient struct {
	busConn

	url  string
	name string
	wait time.Duration
}

func NewNatsClient(url string, name string) *NatsClient {
	return &NatsClient{
		busConn: newBusConn(),
		url:     url,
		name:    name,
		wait:    2 * time.Second,
	}
}

func (c *NatsClient) Start(ctx context.Context) error {
	conn, err := nats.Connect(c.url,
		nats.Name(c.name),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(c.wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.WarnContext(ctx, "nats connection lost", "url", c.url, "error", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to nats at %s: %w", c.url, err)
	}
	c.set(conn)

	slog.InfoContext(ctx, "nats client connected", "url", c.url)

	<-ctx.Done()
	conn.Drain()

	return nil
}
