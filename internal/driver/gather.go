package driver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/pixil98/go-manhunt/internal/game"
	"github.com/pixil98/go-manhunt/internal/transport"
)

// GatherTransport is a Transport that can also list the peers it sees.
type GatherTransport interface {
	Transport
	Peers() []uuid.UUID
}

// Gather waits in the room until players participants are present and then
// agrees on who starts as a seeker. The participant with the lowest id
// publishes the roster; everyone else adopts the first roster they receive.
// Messages that were not part of the handshake are returned so the session
// can consume them.
func Gather(ctx context.Context, t GatherTransport, players, seekers int, settings game.Settings) (game.StartInfo, []transport.Envelope, error) {
	if players < 1 {
		return game.StartInfo{}, nil, fmt.Errorf("players must be at least 1")
	}

	self := t.SelfID()
	peers := make(map[uuid.UUID]bool)
	for _, id := range t.Peers() {
		peers[id] = true
	}

	var leftover []transport.Envelope
	sent := false

	for {
		if !sent && len(peers)+1 >= players && lowest(self, peers) {
			info := Roster(self, peers, seekers, settings)
			slog.InfoContext(ctx, "starting session", "participants", len(info.InitialCaught), "seekers", seekers)
			if err := t.Send(ctx, nil, transport.Message{Kind: transport.KindStart, Start: &info}); err != nil {
				return game.StartInfo{}, nil, fmt.Errorf("announcing start: %w", err)
			}
			sent = true
		}

		batch, err := t.Receive(ctx)
		if err != nil {
			return game.StartInfo{}, nil, fmt.Errorf("waiting for participants: %w", err)
		}

		for i, env := range batch {
			msg := env.Message
			switch msg.Kind {
			case transport.KindPeerConnect:
				peers[msg.Peer] = true
				slog.InfoContext(ctx, "participant joined", "peer", msg.Peer, "present", len(peers)+1, "needed", players)
			case transport.KindPeerDisconnect:
				delete(peers, msg.Peer)
				slog.InfoContext(ctx, "participant left", "peer", msg.Peer, "present", len(peers)+1, "needed", players)
			case transport.KindStart:
				if msg.Start == nil {
					continue
				}
				if _, ok := msg.Start.InitialCaught[self]; !ok {
					return game.StartInfo{}, nil, ErrNotInRoster
				}
				leftover = append(leftover, batch[i+1:]...)
				return *msg.Start, leftover, nil
			case transport.KindDisconnected:
				return game.StartInfo{}, nil, fmt.Errorf("waiting for participants: %w", transport.ErrClosed)
			case transport.KindError:
				return game.StartInfo{}, nil, &AbortError{Reason: msg.Err}
			case transport.KindEvent:
				leftover = append(leftover, env)
			}
		}
	}
}

// Roster builds the StartInfo for self and peers. Ids are sorted and then
// shuffled with the settings seed, and the first seekers of them start
// caught, so the result only depends on its inputs.
func Roster(self uuid.UUID, peers map[uuid.UUID]bool, seekers int, settings game.Settings) game.StartInfo {
	ids := []uuid.UUID{self}
	for id := range peers {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	r := rand.New(rand.NewPCG(uint64(settings.Seed), uint64(len(ids))))
	r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	seekers = max(0, min(seekers, len(ids)))
	caught := make(map[uuid.UUID]bool, len(ids))
	for i, id := range ids {
		caught[id] = i < seekers
	}

	return game.StartInfo{
		Settings:      settings,
		InitialCaught: caught,
	}
}

func lowest(self uuid.UUID, peers map[uuid.UUID]bool) bool {
	for id := range peers {
		if bytes.Compare(id[:], self[:]) < 0 {
			return false
		}
	}
	return true
}
