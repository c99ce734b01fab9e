package transport

import (
	"time"

	"github.com/pixil98/go-manhunt/internal/packet"
)

type TransportOpt func(*Transport)

// WithLimits overrides the packet size limits. A bus that caps payloads
// lower still wins.
func WithLimits(l packet.Limits) TransportOpt {
	return func(t *Transport) {
		t.limits = l
	}
}

// WithPeerTimeout sets how long a silent peer is kept before it is dropped.
func WithPeerTimeout(d time.Duration) TransportOpt {
	return func(t *Transport) {
		t.peerTimeout = d
	}
}

// WithBeatInterval sets how often this participant announces it is alive.
func WithBeatInterval(d time.Duration) TransportOpt {
	return func(t *Transport) {
		t.beatInterval = d
	}
}

// WithQueueSize sets the capacity of the inbound and outbound queues.
func WithQueueSize(n int) TransportOpt {
	return func(t *Transport) {
		t.inboxSize = max(n, 1)
	}
}
