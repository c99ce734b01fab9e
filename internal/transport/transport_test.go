package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-manhunt/internal/game"
	"github.com/pixil98/go-manhunt/internal/messaging"
	"github.com/pixil98/go-manhunt/internal/packet"
)

const waitLimit = 5 * time.Second

func connect(t *testing.T, bus Bus, opts ...TransportOpt) *Transport {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	tr, err := Connect(ctx, bus, "ROOM42", opts...)
	if err != nil {
		cancel()
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-tr.Done()
	})
	return tr
}

// waitFor reads tr's inbox until match accepts an envelope.
func waitFor(t *testing.T, tr *Transport, match func(Envelope) bool) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitLimit)
	defer cancel()

	for {
		batch, err := tr.Receive(ctx)
		if err != nil {
			t.Fatalf("waiting for message: %v", err)
		}
		for _, env := range batch {
			if match(env) {
				return env
			}
		}
	}
}

func isKind(k Kind) func(Envelope) bool {
	return func(env Envelope) bool { return env.Message.Kind == k }
}

func isPeerEvent(k Kind, peer uuid.UUID) func(Envelope) bool {
	return func(env Envelope) bool { return env.Message.Kind == k && env.Message.Peer == peer }
}

// connectPair returns two transports that have seen each other.
func connectPair(t *testing.T, bus Bus, opts ...TransportOpt) (*Transport, *Transport) {
	t.Helper()
	a := connect(t, bus, opts...)
	b := connect(t, bus, opts...)
	waitFor(t, a, isPeerEvent(KindPeerConnect, b.SelfID()))
	waitFor(t, b, isPeerEvent(KindPeerConnect, a.SelfID()))
	return a, b
}

func TestTransport_IDAssignedFirst(t *testing.T) {
	tr := connect(t, messaging.NewMemoryBus())

	env := waitFor(t, tr, func(Envelope) bool { return true })

	testutil.AssertEqual(t, "kind", env.Message.Kind, KindIDAssigned)
	testutil.AssertEqual(t, "peer", env.Message.Peer, tr.SelfID())
}

func TestTransport_BroadcastLoopsBack(t *testing.T) {
	tr := connect(t, messaging.NewMemoryBus())

	err := tr.Send(context.Background(), nil, EventMessage(game.ParticipantCaught{ID: tr.SelfID()}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := waitFor(t, tr, isKind(KindEvent))
	testutil.AssertEqual(t, "from", env.From, tr.SelfID())
	testutil.AssertEqual(t, "caught", env.Message.Event.(game.ParticipantCaught).ID, tr.SelfID())
}

func TestTransport_BroadcastReachesPeers(t *testing.T) {
	bus := messaging.NewMemoryBus()
	a, b := connectPair(t, bus)

	err := a.Send(context.Background(), nil, EventMessage(game.PowerUpDespawned{Taker: a.SelfID()}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := waitFor(t, b, isKind(KindEvent))
	testutil.AssertEqual(t, "from", env.From, a.SelfID())
	testutil.AssertEqual(t, "taker", env.Message.Event.(game.PowerUpDespawned).Taker, a.SelfID())

	own := waitFor(t, a, isKind(KindEvent))
	testutil.AssertEqual(t, "loopback from", own.From, a.SelfID())
}

func TestTransport_DirectedSend(t *testing.T) {
	bus := messaging.NewMemoryBus()
	a, b := connectPair(t, bus)
	c := connect(t, bus)
	waitFor(t, a, isPeerEvent(KindPeerConnect, c.SelfID()))

	to := b.SelfID()
	if err := a.Send(context.Background(), &to, EventMessage(game.ForceReveal{Target: to})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Marks the end of a's traffic to c.
	if err := a.Send(context.Background(), nil, EventMessage(game.ParticipantLeft{ID: uuid.Nil})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := waitFor(t, b, isKind(KindEvent))
	testutil.AssertEqual(t, "target", env.Message.Event.(game.ForceReveal).Target, to)

	env = waitFor(t, c, isKind(KindEvent))
	testutil.AssertEqual(t, "c only sees the broadcast", env.Message.Event.Kind(), game.KindParticipantLeft)
}

func TestTransport_LargeMessage(t *testing.T) {
	bus := messaging.NewMemoryBus()
	limits := packet.Limits{Ceiling: 128, MaxPackets: 1 << 20}
	a, b := connectPair(t, bus, WithLimits(limits))

	history := make([]game.LocationSample, 500)
	for i := range history {
		history[i] = game.LocationSample{
			At:       time.Unix(int64(i), 0).UTC(),
			Location: game.Location{Lat: float64(i), Long: -float64(i)},
		}
	}

	err := a.Send(context.Background(), nil, EventMessage(game.FinalLocationReport{ID: a.SelfID(), History: history}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := waitFor(t, b, isKind(KindEvent))
	report := env.Message.Event.(game.FinalLocationReport)
	testutil.AssertEqual(t, "samples", len(report.History), 500)
	testutil.AssertEqual(t, "last lat", report.History[499].Location.Lat, float64(499))
	testutil.AssertEqual(t, "last at", report.History[499].At.Equal(history[499].At), true)
}

func TestTransport_Disconnect(t *testing.T) {
	bus := messaging.NewMemoryBus()
	a, b := connectPair(t, bus)

	a.Disconnect()

	waitFor(t, a, isKind(KindDisconnected))
	waitFor(t, b, isPeerEvent(KindPeerDisconnect, a.SelfID()))

	select {
	case <-a.Done():
	case <-time.After(waitLimit):
		t.Fatal("loop never stopped")
	}

	_, err := a.Receive(context.Background())
	testutil.AssertEqual(t, "closed", errors.Is(err, ErrClosed), true)

	err = a.Send(context.Background(), nil, EventMessage(game.ParticipantCaught{}))
	testutil.AssertEqual(t, "send after close", errors.Is(err, ErrClosed), true)
	testutil.AssertEqual(t, "peers left", len(b.Peers()), 0)
}

func TestTransport_DisconnectFlushesQueuedSends(t *testing.T) {
	bus := messaging.NewMemoryBus()
	a, b := connectPair(t, bus)

	if err := a.Send(context.Background(), nil, EventMessage(game.ParticipantCaught{ID: a.SelfID()})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Disconnect()

	env := waitFor(t, b, func(env Envelope) bool {
		return env.Message.Kind == KindEvent || env.Message.Kind == KindPeerDisconnect
	})
	testutil.AssertEqual(t, "event before leave", env.Message.Kind, KindEvent)
}

func TestTransport_PeerTimeout(t *testing.T) {
	bus := messaging.NewMemoryBus()
	tr := connect(t, bus, WithBeatInterval(20*time.Millisecond), WithPeerTimeout(60*time.Millisecond))

	ghost := uuid.New()
	data, err := encodePresence(presence{Op: opJoin, From: ghost})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Publish(presenceSubject("ROOM42"), data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, tr, isPeerEvent(KindPeerConnect, ghost))
	waitFor(t, tr, isPeerEvent(KindPeerDisconnect, ghost))

	// A dropped participant is never let back in.
	if err := bus.Publish(presenceSubject("ROOM42"), data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	testutil.AssertEqual(t, "peers", len(tr.Peers()), 0)
}

func TestTransport_PublishFailure(t *testing.T) {
	bus := messaging.NewMemoryBus()
	a, _ := connectPair(t, bus)

	bus.FailPublish(errors.New("link down"))
	if err := a.Send(context.Background(), nil, EventMessage(game.ParticipantCaught{ID: a.SelfID()})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := waitFor(t, a, isKind(KindError))
	testutil.AssertEqual(t, "reason", env.Message.Err != "", true)
}

func TestTransport_MalformedPacketDropped(t *testing.T) {
	bus := messaging.NewMemoryBus()
	a, b := connectPair(t, bus)

	if err := bus.Publish(peerSubject("ROOM42", b.SelfID(), a.SelfID()), []byte{1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Send(context.Background(), nil, EventMessage(game.PowerUpDespawned{Taker: a.SelfID()})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := waitFor(t, b, isKind(KindEvent))
	testutil.AssertEqual(t, "kind", env.Message.Event.Kind(), game.KindPowerUpDespawned)
}
