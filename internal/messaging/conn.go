package messaging

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// busConn is the Publish/Subscribe half shared by NatsServer and
// NatsClient. It refuses to work until set has been called.
type busConn struct {
	mu    sync.RWMutex
	nc    *nats.Conn
	ready chan struct{}
}

func newBusConn() busConn {
	return busConn{ready: make(chan struct{})}
}

func (b *busConn) set(nc *nats.Conn) {
	b.mu.Lock()
	b.nc = nc
	b.mu.Unlock()
	close(b.ready)
}

func (b *busConn) conn() (*nats.Conn, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.nc == nil {
		return nil, fmt.Errorf("nats connection not started")
	}
	return b.nc, nil
}

// Ready is closed once Publish and Subscribe can be used.
func (b *busConn) Ready() <-chan struct{} {
	return b.ready
}

// Subscribe delivers every message on subject, which may hold wildcards,
// to handler along with the subject it was published on. The subscription
// is confirmed with the server before Subscribe returns.
func (b *busConn) Subscribe(subject string, handler func(subject string, data []byte)) (func(), error) {
	nc, err := b.conn()
	if err != nil {
		return nil, err
	}

	sub, err := nc.Subscribe(subject, func(m *nats.Msg) { handler(m.Subject, m.Data) })
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription to %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *busConn) Publish(subject string, data []byte) error {
	nc, err := b.conn()
	if err != nil {
		return err
	}
	return nc.Publish(subject, data)
}

// MaxPayload is the largest message the server accepts, zero before the
// connection is up.
func (b *busConn) MaxPayload() int64 {
	nc, err := b.conn()
	if err != nil {
		return 0
	}
	return nc.MaxPayload()
}
