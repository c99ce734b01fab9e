package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"

	"github.com/iammegalith/telnet"
)

type TelnetListener struct {
	addr string
	cm   *ConnectionManager
}

// NewTelnetListener serves consoles on addr, a host:port pair.
func NewTelnetListener(addr string, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		addr: addr,
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	conns := newConnTracker()
	svr := telnet.NewServer(l.addr, telnetHandler{cm: l.cm, conns: conns})

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			svr.Stop()
			conns.closeAll()
		case <-stopped:
		}
	}()

	slog.InfoContext(ctx, "console listening", "protocol", "telnet", "addr", l.addr)

	err := svr.ListenAndServe()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.EADDRINUSE):
		return fmt.Errorf("%s is already in use (is another participant running here?)", l.addr)
	default:
		return fmt.Errorf("serving telnet on %s: %w", l.addr, err)
	}
}

type telnetHandler struct {
	cm    *ConnectionManager
	conns *connTracker
}

func (h telnetHandler) HandleTelnet(conn *telnet.Connection) {
	ctx, done := h.conns.add()
	defer done()
	defer func() {
		if err := conn.Close(); err != nil {
			slog.DebugContext(ctx, "closing telnet connection", "error", err)
		}
	}()

	h.cm.AcceptConnection(ctx, newCRLFReadWriter(conn))
}
