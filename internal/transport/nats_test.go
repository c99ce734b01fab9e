package transport

import (
	"context"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-manhunt/internal/game"
	"github.com/pixil98/go-manhunt/internal/messaging"
)

func TestTransport_OverEmbeddedNats(t *testing.T) {
	srv, err := messaging.NewNatsServer(messaging.WithPort(-1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-srv.Ready():
	case <-time.After(waitLimit):
		t.Fatal("nats server never became ready")
	}

	a, b := connectPair(t, srv)

	history := make([]game.LocationSample, 20000)
	for i := range history {
		history[i] = game.LocationSample{At: time.Unix(int64(i), 0).UTC(), Location: game.Location{Lat: float64(i)}}
	}

	err = a.Send(context.Background(), nil, EventMessage(game.FinalLocationReport{ID: a.SelfID(), History: history}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := waitFor(t, b, isKind(KindEvent))
	testutil.AssertEqual(t, "from", env.From, a.SelfID())
	testutil.AssertEqual(t, "samples", len(env.Message.Event.(game.FinalLocationReport).History), 20000)

	b.Disconnect()
	waitFor(t, a, isPeerEvent(KindPeerDisconnect, b.SelfID()))
}
