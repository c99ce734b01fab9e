package storage

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/pixil98/go-manhunt/internal/game"
)

// HistoryStore keeps finished sessions, keyed by when they started.
type HistoryStore struct {
	files Storer[*game.History]
}

func NewHistoryStore(path string) (*HistoryStore, error) {
	fs, err := NewDirStore[*game.History](path)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return &HistoryStore{files: fs}, nil
}

func (h *HistoryStore) Save(hist *game.History) error {
	if err := h.files.Save(hist.Key(), hist); err != nil {
		return fmt.Errorf("saving history %s: %w", hist.Key(), err)
	}
	slog.Info("session history saved", "key", hist.Key(), "events", len(hist.Events))
	return nil
}

// Get returns the history saved under key, or nil.
func (h *HistoryStore) Get(key string) *game.History {
	return h.files.Get(key)
}

// Keys lists stored histories, most recent first.
func (h *HistoryStore) Keys() []string {
	keys := h.files.Keys()
	slices.SortFunc(keys, func(a, b string) int {
		return compareMillis(b, a)
	})
	return keys
}

// List returns every stored history, most recent first.
func (h *HistoryStore) List() []*game.History {
	keys := h.Keys()
	out := make([]*game.History, 0, len(keys))
	for _, k := range keys {
		if hist := h.files.Get(k); hist != nil {
			out = append(out, hist)
		}
	}
	return out
}

// compareMillis orders keys numerically so a key that gained a digit still
// sorts after older ones.
func compareMillis(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr != nil || berr != nil {
		if a < b {
			return -1
		} else if a > b {
			return 1
		}
		return 0
	}
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}
