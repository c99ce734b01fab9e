package driver

import (
	"context"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-manhunt/internal/game"
	"github.com/pixil98/go-manhunt/internal/messaging"
)

type chanSaver struct {
	saved chan *game.History
}

func (s *chanSaver) Save(hist *game.History) error {
	s.saved <- hist
	return nil
}

func TestRunner_NotStarted(t *testing.T) {
	r := NewRunner(RunnerConfig{Room: "ROOM42", Players: 2}, messaging.NewMemoryBus(), nil, nil)

	_, ok := r.Snapshot()
	testutil.AssertEqual(t, "started", ok, false)
	testutil.AssertEqual(t, "room", r.Room(), "ROOM42")

	testutil.AssertErrorContains(t, r.MarkCaught(context.Background()), ErrNotStarted.Error())
	testutil.AssertErrorContains(t, r.GrabPowerUp(context.Background()), ErrNotStarted.Error())
	testutil.AssertErrorContains(t, r.ForcePowerUp(game.RevealAllSeekers), ErrNotStarted.Error())
	testutil.AssertErrorContains(t, r.Quit(), ErrNotStarted.Error())

	_, err := r.UsePowerUp(context.Background())
	testutil.AssertErrorContains(t, err, ErrNotStarted.Error())
}

func TestRunner_InvalidRoom(t *testing.T) {
	r := NewRunner(RunnerConfig{Room: "room-1", Players: 1}, messaging.NewMemoryBus(), nil, nil)

	err := r.Start(context.Background())
	testutil.AssertErrorContains(t, err, "invalid room code")
}

func TestRunner_SoloSession(t *testing.T) {
	saver := &chanSaver{saved: make(chan *game.History, 1)}
	cfg := RunnerConfig{
		Players:  1,
		Seekers:  1,
		Settings: quietSettings(),
		Interval: 10 * time.Millisecond,
	}
	r := NewRunner(cfg, messaging.NewMemoryBus(), saver, &home)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		errs <- r.Start(ctx)
	}()

	var hist *game.History
	select {
	case hist = <-saver.saved:
	case err := <-errs:
		t.Fatalf("runner stopped early: %v", err)
	case <-time.After(waitLimit):
		t.Fatalf("no history saved")
	}

	testutil.AssertEqual(t, "participants", len(hist.Locations), 1)
	testutil.AssertEqual(t, "valid room", len(r.Room()), 6)

	ui, ok := r.Snapshot()
	testutil.AssertEqual(t, "started", ok, true)
	testutil.AssertEqual(t, "seeker", ui.IsSeeker(), true)

	cancel()
	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(waitLimit):
		t.Fatalf("runner did not stop")
	}
	testutil.AssertEqual(t, "finished", r.Finished(), true)
}
