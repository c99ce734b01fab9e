package listener

import (
	"context"
	"sync"
)

// connTracker hands connections a context that outlives the accept loop's
// and lets the listener wait for every connection to wind down.
type connTracker struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newConnTracker() *connTracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &connTracker{ctx: ctx, cancel: cancel}
}

// add registers a connection. done must be called once it has closed.
func (t *connTracker) add() (ctx context.Context, done func()) {
	t.wg.Add(1)
	return t.ctx, t.wg.Done
}

// closeAll cancels every connection and waits for them to return.
func (t *connTracker) closeAll() {
	t.cancel()
	t.wg.Wait()
}
