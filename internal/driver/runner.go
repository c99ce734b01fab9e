package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pixil98/go-manhunt/internal/game"
	"github.com/pixil98/go-manhunt/internal/transport"
)

// Bus is a transport.Bus that may need time to come up.
type Bus interface {
	transport.Bus
	Ready() <-chan struct{}
}

// HistorySaver persists finished sessions.
type HistorySaver interface {
	Save(*game.History) error
}

type RunnerConfig struct {
	Room     string
	Players  int
	Seekers  int
	Settings game.Settings
	Interval time.Duration
	// Transport options, used mainly to tune peer timeouts.
	TransportOpts []transport.TransportOpt
}

// Runner is the worker that takes one participant through a whole session:
// join the room, gather the roster, run the driver and keep the history.
type Runner struct {
	cfg       RunnerConfig
	bus       Bus
	location  *ManualLocation
	histories HistorySaver

	mu       sync.RWMutex
	room     string
	driver   *Driver
	latest   game.UiState
	finished bool
}

func NewRunner(cfg RunnerConfig, bus Bus, histories HistorySaver, initial *game.Location) *Runner {
	r := &Runner{
		cfg:       cfg,
		bus:       bus,
		location:  &ManualLocation{},
		histories: histories,
		room:      cfg.Room,
	}
	if initial != nil {
		r.location.Set(*initial)
	}
	return r
}

func (r *Runner) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-r.bus.Ready():
	}

	room, err := r.roomCode()
	if err != nil {
		return err
	}

	tr, err := transport.Connect(ctx, r.bus, room, r.cfg.TransportOpts...)
	if err != nil {
		return fmt.Errorf("joining room %s: %w", room, err)
	}
	slog.InfoContext(ctx, "joined room", "room", room, "id", tr.SelfID(), "players", r.cfg.Players)

	info, leftover, err := Gather(ctx, tr, r.cfg.Players, r.cfg.Seekers, r.cfg.Settings)
	if err != nil {
		tr.Disconnect()
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("gathering participants: %w", err)
	}

	opts := []DriverOpt{WithPending(leftover)}
	if r.cfg.Interval > 0 {
		opts = append(opts, WithInterval(r.cfg.Interval))
	}
	d := New(tr, info, r.location, r, opts...)

	r.mu.Lock()
	r.driver = d
	r.mu.Unlock()

	hist, err := d.Run(ctx)

	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("running session: %w", err)
	}

	if hist != nil && r.histories != nil {
		if err := r.histories.Save(hist); err != nil {
			return err
		}
	}

	// Stay up so the console and the history api remain reachable.
	<-ctx.Done()
	return nil
}

func (r *Runner) roomCode() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.room != "" {
		if !transport.ValidRoomCode(r.room) {
			return "", fmt.Errorf("invalid room code %q", r.room)
		}
		return r.room, nil
	}

	code, err := transport.GenerateRoomCode(nil)
	if err != nil {
		return "", fmt.Errorf("generating room code: %w", err)
	}
	r.room = code
	return code, nil
}

// StateUpdated keeps the latest snapshot for the console.
func (r *Runner) StateUpdated(ui game.UiState) {
	r.mu.Lock()
	r.latest = ui
	r.mu.Unlock()

	slog.Debug("state updated", "seekers", ui.Seekers(), "reveals", len(ui.Reveals), "ended", ui.Ended != nil)
}

// Room returns the room code, empty until one is known.
func (r *Runner) Room() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room
}

// Snapshot returns the latest state and whether a session has started.
func (r *Runner) Snapshot() (game.UiState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.driver != nil
}

// Finished reports whether the session is over on this participant.
func (r *Runner) Finished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finished
}

func (r *Runner) current() (*Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.driver == nil {
		return nil, ErrNotStarted
	}
	return r.driver, nil
}

func (r *Runner) MarkCaught(ctx context.Context) error {
	d, err := r.current()
	if err != nil {
		return err
	}
	return d.MarkCaught(ctx)
}

func (r *Runner) GrabPowerUp(ctx context.Context) error {
	d, err := r.current()
	if err != nil {
		return err
	}
	return d.GrabPowerUp(ctx)
}

func (r *Runner) UsePowerUp(ctx context.Context) (game.PowerUpType, error) {
	d, err := r.current()
	if err != nil {
		return 0, err
	}
	return d.UsePowerUp(ctx)
}

func (r *Runner) ForcePowerUp(t game.PowerUpType) error {
	d, err := r.current()
	if err != nil {
		return err
	}
	d.ForcePowerUp(t)
	return nil
}

func (r *Runner) SetLocation(loc game.Location) {
	r.location.Set(loc)
}

// Quit leaves the session without a history.
func (r *Runner) Quit() error {
	d, err := r.current()
	if err != nil {
		return err
	}
	d.Quit()
	return nil
}
