// Package transport delivers framed session messages between participants of
// one room over a publish/subscribe bus.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixil98/go-manhunt/internal/packet"
)

var ErrClosed = errors.New("transport closed")

const maxBatch = 64

// Bus is the physical connection every participant of a room shares.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(subject string, data []byte)) (func(), error)
}

// payloadLimiter is implemented by buses that cap message size.
type payloadLimiter interface {
	MaxPayload() int64
}

type outgoing struct {
	to      *uuid.UUID
	packets [][]byte
}

type inboundPacket struct {
	from uuid.UUID
	data []byte
}

// Transport is one participant's connection to a room. A background
// goroutine owns the bus traffic; callers only touch the queues.
type Transport struct {
	id   uuid.UUID
	room string
	bus  Bus

	limits       packet.Limits
	peerTimeout  time.Duration
	beatInterval time.Duration
	inboxSize    int

	handler *packet.Handler[uuid.UUID, Message]

	outbound chan outgoing
	inbound  chan Envelope
	packets  chan inboundPacket
	presence chan presence

	mu    sync.RWMutex
	peers map[uuid.UUID]time.Time
	gone  map[uuid.UUID]bool

	unsubs []func()
	cancel context.CancelFunc
	done   chan struct{}
}

// Connect joins room on bus with a fresh identity and starts the background
// loop. The loop stops when ctx ends or Disconnect is called.
func Connect(ctx context.Context, bus Bus, room string, opts ...TransportOpt) (*Transport, error) {
	t := &Transport{
		id:           uuid.New(),
		room:         room,
		bus:          bus,
		limits:       packet.DefaultLimits(),
		peerTimeout:  15 * time.Second,
		beatInterval: 3 * time.Second,
		inboxSize:    256,
		peers:        map[uuid.UUID]time.Time{},
		gone:         map[uuid.UUID]bool{},
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	if l, ok := bus.(payloadLimiter); ok {
		if limit := l.MaxPayload(); limit > 0 && limit < int64(t.limits.Ceiling) {
			t.limits.Ceiling = int(limit)
		}
	}

	t.handler = packet.NewHandler[uuid.UUID, Message](Decode)
	t.outbound = make(chan outgoing, t.inboxSize)
	t.inbound = make(chan Envelope, t.inboxSize)
	t.packets = make(chan inboundPacket, t.inboxSize)
	t.presence = make(chan presence, t.inboxSize)

	unsub, err := bus.Subscribe(presenceSubject(room), t.onPresence)
	if err != nil {
		return nil, fmt.Errorf("subscribing to presence: %w", err)
	}
	t.unsubs = append(t.unsubs, unsub)

	unsub, err = bus.Subscribe(inboxSubject(room, t.id), t.onPacket)
	if err != nil {
		t.unsubscribe()
		return nil, fmt.Errorf("subscribing to inbox: %w", err)
	}
	t.unsubs = append(t.unsubs, unsub)

	t.inbound <- Envelope{Message: Message{Kind: KindIDAssigned, Peer: t.id}}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	go t.loop(loopCtx)

	return t, nil
}

func (t *Transport) SelfID() uuid.UUID {
	return t.id
}

func (t *Transport) Room() string {
	return t.room
}

// Peers lists the other participants currently connected, in a stable order.
func (t *Transport) Peers() []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedIDs(t.peers)
}

// Done is closed once the background loop has exited.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Disconnect asks the loop to flush pending sends, announce the departure
// and stop. It does not wait for that to happen.
func (t *Transport) Disconnect() {
	t.cancel()
}

// Send queues msg for delivery. A nil to broadcasts to every peer and also
// delivers msg back to this participant's own inbox.
func (t *Transport) Send(ctx context.Context, to *uuid.UUID, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	pkts, err := packet.Split(data, t.limits)
	if err != nil {
		return fmt.Errorf("framing %s message: %w", msg.Kind, err)
	}

	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	select {
	case t.outbound <- outgoing{to: to, packets: pkts}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrClosed
	}
}

// Receive blocks until at least one message is available and returns every
// message queued at that point. Once the loop has stopped and the inbox is
// empty it returns ErrClosed.
func (t *Transport) Receive(ctx context.Context) ([]Envelope, error) {
	var first Envelope
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case first = <-t.inbound:
	case <-t.done:
		select {
		case first = <-t.inbound:
		default:
			return nil, ErrClosed
		}
	}

	batch := []Envelope{first}
	for len(batch) < maxBatch {
		select {
		case env := <-t.inbound:
			batch = append(batch, env)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

func (t *Transport) loop(ctx context.Context) {
	defer close(t.done)
	defer t.unsubscribe()

	if err := t.announce(opJoin); err != nil {
		t.fail(ctx, err)
		return
	}

	beat := time.NewTicker(t.beatInterval)
	defer beat.Stop()

	for {
		select {
		case <-ctx.Done():
			t.shutdown(ctx)
			return
		case out := <-t.outbound:
			if err := t.deliver(ctx, out); err != nil {
				t.fail(ctx, err)
				return
			}
		case pkt := <-t.packets:
			t.receivePacket(ctx, pkt.from, pkt.data)
		case p := <-t.presence:
			if err := t.handlePresence(ctx, p); err != nil {
				t.fail(ctx, err)
				return
			}
		case now := <-beat.C:
			if err := t.announce(opBeat); err != nil {
				t.fail(ctx, err)
				return
			}
			t.expirePeers(ctx, now)
		}
	}
}

// shutdown flushes whatever was queued before the cancel, says goodbye and
// leaves a final Disconnected in the inbox.
func (t *Transport) shutdown(ctx context.Context) {
drain:
	for {
		select {
		case out := <-t.outbound:
			if err := t.deliver(ctx, out); err != nil {
				slog.WarnContext(ctx, "dropping queued send on shutdown", "room", t.room, "error", err)
			}
		default:
			break drain
		}
	}

	if err := t.sayGoodbye(); err != nil {
		slog.WarnContext(ctx, "announcing leave", "room", t.room, "error", err)
	}

	t.tryPush(Envelope{Message: Message{Kind: KindDisconnected}})
}

func (t *Transport) fail(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "transport failed", "room", t.room, "id", t.id, "error", err)
	if lerr := t.sayGoodbye(); lerr != nil {
		slog.DebugContext(ctx, "announcing leave after failure", "error", lerr)
	}
	t.tryPush(Envelope{Message: Message{Kind: KindError, Err: err.Error()}})
}

func (t *Transport) deliver(ctx context.Context, out outgoing) error {
	switch {
	case out.to == nil:
		for _, peer := range t.Peers() {
			if err := t.publishPackets(peer, out.packets); err != nil {
				return err
			}
		}
		t.loopback(ctx, out.packets)
	case *out.to == t.id:
		t.loopback(ctx, out.packets)
	default:
		if err := t.publishPackets(*out.to, out.packets); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) publishPackets(to uuid.UUID, pkts [][]byte) error {
	subject := peerSubject(t.room, to, t.id)
	for _, p := range pkts {
		if err := t.bus.Publish(subject, p); err != nil {
			return fmt.Errorf("publishing to %s: %w", to, err)
		}
	}
	return nil
}

// loopback feeds our own packets through the same reassembly path a peer's
// packets take.
func (t *Transport) loopback(ctx context.Context, pkts [][]byte) {
	for _, p := range pkts {
		t.receivePacket(ctx, t.id, p)
	}
}

func (t *Transport) receivePacket(ctx context.Context, from uuid.UUID, data []byte) {
	if from != t.id {
		if t.isGone(from) {
			return
		}
		t.touchPeer(ctx, from, time.Now())
	}

	msg, complete, err := t.handler.Consume(from, data)
	if err != nil {
		slog.WarnContext(ctx, "dropping malformed message", "room", t.room, "from", from, "error", err)
		return
	}
	if !complete {
		return
	}
	if msg.Kind == kindGoodbye {
		if from != t.id {
			t.dropPeer(ctx, from)
		}
		return
	}

	t.push(ctx, Envelope{From: from, Message: msg})
}

func (t *Transport) handlePresence(ctx context.Context, p presence) error {
	if p.From == t.id || p.From == uuid.Nil || t.isGone(p.From) {
		return nil
	}

	switch p.Op {
	case opJoin:
		t.touchPeer(ctx, p.From, time.Now())
		return t.announce(opHere)
	case opHere, opBeat:
		t.touchPeer(ctx, p.From, time.Now())
	default:
		slog.DebugContext(ctx, "ignoring unknown presence op", "op", p.Op, "from", p.From)
	}
	return nil
}

func (t *Transport) touchPeer(ctx context.Context, id uuid.UUID, now time.Time) {
	t.mu.Lock()
	_, known := t.peers[id]
	t.peers[id] = now
	t.mu.Unlock()

	if !known {
		slog.DebugContext(ctx, "peer connected", "room", t.room, "peer", id)
		t.push(ctx, Envelope{Message: Message{Kind: KindPeerConnect, Peer: id}})
	}
}

// dropPeer forgets id for good. A participant that left cannot come back.
func (t *Transport) dropPeer(ctx context.Context, id uuid.UUID) {
	t.mu.Lock()
	_, known := t.peers[id]
	delete(t.peers, id)
	t.gone[id] = true
	t.mu.Unlock()

	t.handler.Drop(id)

	if known {
		slog.DebugContext(ctx, "peer disconnected", "room", t.room, "peer", id)
		t.push(ctx, Envelope{Message: Message{Kind: KindPeerDisconnect, Peer: id}})
	}
}

func (t *Transport) expirePeers(ctx context.Context, now time.Time) {
	t.mu.RLock()
	var stale []uuid.UUID
	for id, seen := range t.peers {
		if now.Sub(seen) > t.peerTimeout {
			stale = append(stale, id)
		}
	}
	t.mu.RUnlock()

	for _, id := range stale {
		slog.InfoContext(ctx, "peer timed out", "room", t.room, "peer", id)
		t.dropPeer(ctx, id)
	}
}

func (t *Transport) isGone(id uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gone[id]
}

// sayGoodbye tells every peer we are leaving. It goes through each peer's
// inbox rather than the presence subject so it cannot overtake data we sent
// them earlier.
func (t *Transport) sayGoodbye() error {
	data, err := Encode(Message{Kind: kindGoodbye})
	if err != nil {
		return err
	}
	pkts, err := packet.Split(data, t.limits)
	if err != nil {
		return err
	}
	var errs []error
	for _, peer := range t.Peers() {
		errs = append(errs, t.publishPackets(peer, pkts))
	}
	return errors.Join(errs...)
}

func (t *Transport) announce(op presenceOp) error {
	data, err := encodePresence(presence{Op: op, From: t.id})
	if err != nil {
		return err
	}
	if err := t.bus.Publish(presenceSubject(t.room), data); err != nil {
		return fmt.Errorf("announcing presence: %w", err)
	}
	return nil
}

// push hands env to the consumer, giving up only when the loop is stopping.
func (t *Transport) push(ctx context.Context, env Envelope) {
	select {
	case t.inbound <- env:
	case <-ctx.Done():
		t.tryPush(env)
	}
}

func (t *Transport) tryPush(env Envelope) {
	select {
	case t.inbound <- env:
	default:
		slog.Warn("inbox full, dropping message", "room", t.room, "kind", env.Message.Kind)
	}
}

// onPacket and onPresence run on the bus's delivery goroutines.
func (t *Transport) onPacket(subject string, data []byte) {
	from, err := senderOf(subject)
	if err != nil {
		slog.Warn("dropping packet with unparseable subject", "subject", subject, "error", err)
		return
	}
	select {
	case t.packets <- inboundPacket{from: from, data: data}:
	case <-t.done:
	}
}

func (t *Transport) onPresence(_ string, data []byte) {
	p, err := decodePresence(data)
	if err != nil {
		slog.Warn("dropping malformed presence", "room", t.room, "error", err)
		return
	}
	select {
	case t.presence <- p:
	case <-t.done:
	}
}

func (t *Transport) unsubscribe() {
	for _, u := range t.unsubs {
		u()
	}
	t.unsubs = nil
}

func sortedIDs[V any](m map[uuid.UUID]V) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}
