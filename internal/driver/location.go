package driver

import (
	"sync"

	"github.com/pixil98/go-manhunt/internal/game"
)

// FixedLocation always reports the same place.
type FixedLocation struct {
	loc game.Location
}

func NewFixedLocation(loc game.Location) *FixedLocation {
	return &FixedLocation{loc: loc}
}

func (f *FixedLocation) Location() *game.Location {
	loc := f.loc
	return &loc
}

// ManualLocation reports whatever was last set, nil until the first Set.
type ManualLocation struct {
	mu  sync.RWMutex
	loc *game.Location
}

func (m *ManualLocation) Set(loc game.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loc = &loc
}

func (m *ManualLocation) Location() *game.Location {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loc == nil {
		return nil
	}
	loc := *m.loc
	return &loc
}
