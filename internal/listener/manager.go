package listener

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/pixil98/go-manhunt/internal/console"
)

// ConnectionManager hands every accepted connection a console on the
// local session. Several connections may drive the same session at once.
type ConnectionManager struct {
	console *console.Console
	active  atomic.Int32
}

func NewConnectionManager(c *console.Console) *ConnectionManager {
	return &ConnectionManager{
		console: c,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	n := m.active.Add(1)
	defer m.active.Add(-1)

	slog.InfoContext(ctx, "console attached", "active", n)
	if err := m.console.Play(ctx, conn); err != nil && ctx.Err() == nil {
		slog.WarnContext(ctx, "console session", "error", err)
	}
	slog.InfoContext(ctx, "console detached")
}

// Active is the number of consoles currently attached.
func (m *ConnectionManager) Active() int {
	return int(m.active.Load())
}
