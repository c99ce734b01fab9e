// Package driver runs a session: it ticks the local replica, feeds it what
// the transport receives and sends back whatever the replica produces.
package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixil98/go-manhunt/internal/game"
	"github.com/pixil98/go-manhunt/internal/transport"
)

const (
	DefaultTickInterval = time.Second
)

// Transport is what the driver needs from a room connection.
type Transport interface {
	SelfID() uuid.UUID
	Send(ctx context.Context, to *uuid.UUID, msg transport.Message) error
	Receive(ctx context.Context) ([]transport.Envelope, error)
	Disconnect()
}

// LocationSource reports where this participant is, nil when unknown.
type LocationSource interface {
	Location() *game.Location
}

// UpdateSink is told whenever the visible state changes.
type UpdateSink interface {
	StateUpdated(game.UiState)
}

type Driver struct {
	transport Transport
	location  LocationSource
	sink      UpdateSink

	interval time.Duration
	now      func() time.Time
	ticks    <-chan time.Time

	mu    sync.Mutex
	state *game.State

	pendingMu  sync.Mutex
	pending    []transport.Envelope
	pendingErr error

	quit     chan struct{}
	quitOnce sync.Once
}

func New(t Transport, info game.StartInfo, loc LocationSource, sink UpdateSink, opts ...DriverOpt) *Driver {
	d := &Driver{
		transport: t,
		location:  loc,
		sink:      sink,
		interval:  DefaultTickInterval,
		now:       time.Now,
		quit:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.state = game.NewState(info.Settings, t.SelfID(), info.InitialCaught, d.now())

	return d
}

// Run drives the session until it completes, the transport goes away or
// Quit is called. A completed session returns its history; a quit or an
// expected disconnect returns neither history nor error.
func (d *Driver) Run(ctx context.Context) (*game.History, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer d.transport.Disconnect()

	ticks := d.ticks
	if ticks == nil {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	arrived := make(chan struct{}, 1)
	if d.hasPending() {
		arrived <- struct{}{}
	}
	go d.pump(ctx, arrived)

	d.notify()

	for {
		// Messages always win over a due tick.
		select {
		case <-d.quit:
			return nil, nil
		case <-ctx.Done():
			return nil, nil
		case <-arrived:
			if hist, done, err := d.consumePending(ctx); done {
				return hist, err
			}
			continue
		default:
		}

		select {
		case <-d.quit:
			return nil, nil
		case <-ctx.Done():
			return nil, nil
		case <-arrived:
			if hist, done, err := d.consumePending(ctx); done {
				return hist, err
			}
		case <-ticks:
			if hist := d.tick(ctx); hist != nil {
				slog.InfoContext(ctx, "session complete", "id", hist.ID, "participants", len(hist.Locations))
				return hist, nil
			}
		}
	}
}

// Quit stops Run at its next wakeup. The transport is disconnected on the
// way out and no history is produced.
func (d *Driver) Quit() {
	d.quitOnce.Do(func() { close(d.quit) })
}

// pump moves everything the transport receives onto the pending list so the
// transport never waits on the driver.
func (d *Driver) pump(ctx context.Context, arrived chan<- struct{}) {
	for {
		batch, err := d.transport.Receive(ctx)

		d.pendingMu.Lock()
		d.pending = append(d.pending, batch...)
		if err != nil {
			d.pendingErr = err
		}
		d.pendingMu.Unlock()

		select {
		case arrived <- struct{}{}:
		default:
		}

		if err != nil {
			return
		}
	}
}

func (d *Driver) hasPending() bool {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	return len(d.pending) > 0
}

func (d *Driver) takePending() ([]transport.Envelope, error) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	batch := d.pending
	d.pending = nil
	err := d.pendingErr
	d.pendingErr = nil
	return batch, err
}

// consumePending applies every message received so far. done reports that
// the session is over, with hist and err as Run's result.
func (d *Driver) consumePending(ctx context.Context) (hist *game.History, done bool, err error) {
	batch, recvErr := d.takePending()

	var out []game.Event
	changed := false

	d.mu.Lock()
	for _, env := range batch {
		evs, stop, abort := d.handle(ctx, env)
		if stop {
			d.mu.Unlock()
			return nil, true, abort
		}
		if evs != nil || env.Message.Kind == transport.KindEvent || env.Message.Kind == transport.KindPeerDisconnect {
			changed = true
		}
		out = append(out, evs...)
	}
	d.mu.Unlock()

	d.broadcast(ctx, out)
	if changed {
		d.notify()
	}

	if recvErr != nil {
		if errors.Is(recvErr, transport.ErrClosed) {
			slog.InfoContext(ctx, "transport closed, leaving session")
			return nil, true, nil
		}
		if ctx.Err() == nil {
			return nil, true, &AbortError{Reason: recvErr.Error()}
		}
	}
	return nil, false, nil
}

// handle applies one inbound message with the state lock held.
func (d *Driver) handle(ctx context.Context, env transport.Envelope) (evs []game.Event, stop bool, abort error) {
	msg := env.Message
	switch msg.Kind {
	case transport.KindEvent:
		return d.state.Consume(d.now(), msg.Event), false, nil
	case transport.KindPeerDisconnect:
		slog.InfoContext(ctx, "participant left", "peer", msg.Peer)
		return d.state.Consume(d.now(), game.ParticipantLeft{ID: msg.Peer}), false, nil
	case transport.KindDisconnected:
		slog.InfoContext(ctx, "disconnected from room")
		return nil, true, nil
	case transport.KindError:
		return nil, true, &AbortError{Reason: msg.Err}
	case transport.KindPeerConnect, transport.KindIDAssigned, transport.KindStart:
		slog.DebugContext(ctx, "ignoring message", "kind", msg.Kind, "peer", msg.Peer)
	default:
		slog.WarnContext(ctx, "unexpected message", "kind", msg.Kind, "from", env.From)
	}
	return nil, false, nil
}

func (d *Driver) tick(ctx context.Context) *game.History {
	loc := d.location.Location()

	d.mu.Lock()
	res := d.state.Tick(d.now(), loc)
	var hist *game.History
	if res.Done {
		h := d.state.History()
		hist = &h
	}
	d.mu.Unlock()

	d.broadcast(ctx, res.Events)
	if res.Changed {
		d.notify()
	}
	return hist
}

// broadcast sends evs to every participant, self included. A failed send is
// only logged; the transport reports its own failure through Receive.
func (d *Driver) broadcast(ctx context.Context, evs []game.Event) {
	for _, ev := range evs {
		if err := d.transport.Send(ctx, nil, transport.EventMessage(ev)); err != nil {
			slog.WarnContext(ctx, "sending event", "kind", ev.Kind(), "error", err)
		}
	}
}

func (d *Driver) notify() {
	if d.sink == nil {
		return
	}
	d.sink.StateUpdated(d.Snapshot())
}

// Snapshot returns what a player-facing surface shows right now.
func (d *Driver) Snapshot() game.UiState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Snapshot()
}

func (d *Driver) Settings() game.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Settings()
}

// MarkCaught turns this participant into a seeker.
func (d *Driver) MarkCaught(ctx context.Context) error {
	d.mu.Lock()
	evs := d.state.MarkSelfCaught()
	d.mu.Unlock()

	return d.send(ctx, evs)
}

// GrabPowerUp picks up the power-up on the map.
func (d *Driver) GrabPowerUp(ctx context.Context) error {
	d.mu.Lock()
	evs, err := d.state.AcquirePowerUp()
	d.mu.Unlock()
	if err != nil {
		return err
	}

	if err := d.send(ctx, evs); err != nil {
		return err
	}
	d.notify()
	return nil
}

// UsePowerUp spends the held power-up and carries out its effect.
func (d *Driver) UsePowerUp(ctx context.Context) (game.PowerUpType, error) {
	d.mu.Lock()
	typ, ok := d.state.UseHeldPowerUp()
	if !ok {
		d.mu.Unlock()
		return 0, game.ErrNoPowerUpHeld
	}
	evs := d.state.PowerUpEffect(typ)
	d.mu.Unlock()

	slog.InfoContext(ctx, "power-up used", "type", typ, "events", len(evs))
	if err := d.send(ctx, evs); err != nil {
		return typ, err
	}
	d.notify()
	return typ, nil
}

// ForcePowerUp hands this participant a power-up of the given type.
func (d *Driver) ForcePowerUp(t game.PowerUpType) {
	d.mu.Lock()
	d.state.ForceSetPowerUp(t)
	d.mu.Unlock()
	d.notify()
}

func (d *Driver) send(ctx context.Context, evs []game.Event) error {
	for _, ev := range evs {
		if err := d.transport.Send(ctx, nil, transport.EventMessage(ev)); err != nil {
			return err
		}
	}
	return nil
}
