package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// NatsServer embeds a NATS server in the process so a participant can
// host the bus for the others, and talks to it like any client would.
type NatsServer struct {
	busConn

	ns           *server.Server
	readyTimeout time.Duration
}

func NewNatsServer(opts ...NatsServerOpt) (*NatsServer, error) {
	cfg := natsServerConfig{
		readyTimeout: 10 * time.Second,
		options: server.Options{
			ServerName: "manhunt",
			Host:       "127.0.0.1",
			NoSigs:     true,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ns, err := server.NewServer(&cfg.options)
	if err != nil {
		return nil, fmt.Errorf("configuring nats server: %w", err)
	}

	return &NatsServer{
		busConn:      newBusConn(),
		ns:           ns,
		readyTimeout: cfg.readyTimeout,
	}, nil
}

func (n *NatsServer) Start(ctx context.Context) error {
	n.ns.Start()
	defer n.ns.WaitForShutdown()
	defer n.ns.Shutdown()

	if !n.ns.ReadyForConnections(n.readyTimeout) {
		return fmt.Errorf("nats server not ready after %s", n.readyTimeout)
	}

	nc, err := nats.Connect(n.ns.ClientURL(), nats.InProcessServer(n.ns), nats.Name("manhunt-host"))
	if err != nil {
		return fmt.Errorf("connecting to embedded nats: %w", err)
	}
	n.set(nc)

	slog.InfoContext(ctx, "hosting nats for the room", "url", n.ns.ClientURL())

	<-ctx.Done()
	if err := nc.Drain(); err != nil {
		slog.WarnContext(ctx, "draining nats connection", "error", err)
	}
	return nil
}

// ClientURL is where other participants can reach this server.
func (n *NatsServer) ClientURL() string {
	return n.ns.ClientURL()
}
