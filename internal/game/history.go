package game

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"
)

// StartInfo is what the lobby hands over when a session begins.
type StartInfo struct {
	Settings Settings `json:"settings"`
	// InitialCaught maps every participant to whether they start as a seeker.
	InitialCaught map[uuid.UUID]bool `json:"initial_caught"`
}

// History is the immutable record of a finished session.
type History struct {
	ID        uuid.UUID                      `json:"id"`
	Started   time.Time                      `json:"started"`
	Ended     time.Time                      `json:"ended"`
	Events    []LoggedEvent                  `json:"events"`
	Locations map[uuid.UUID][]LocationSample `json:"locations"`
}

// Key identifies a history in a store. Histories are keyed by start time.
func (h *History) Key() string {
	return strconv.FormatInt(h.Started.UnixMilli(), 10)
}

func (h *History) Validate() error {
	if h == nil {
		return fmt.Errorf("history is empty")
	}

	el := errors.NewErrorList()

	if h.ID == uuid.Nil {
		el.Add(fmt.Errorf("id must be set"))
	}
	if h.Started.IsZero() {
		el.Add(fmt.Errorf("started must be set"))
	}
	if h.Ended.Before(h.Started) {
		el.Add(fmt.Errorf("ended must not be before started"))
	}

	return el.Err()
}

// UiState is the part of State a player-facing surface needs.
type UiState struct {
	ID               uuid.UUID            `json:"id"`
	Caught           map[uuid.UUID]bool   `json:"caught"`
	Reveals          map[uuid.UUID]Reveal `json:"reveals"`
	AvailablePowerUp *Location            `json:"available_powerup,omitempty"`
	HeldPowerUp      *PowerUpType         `json:"held_powerup,omitempty"`
	Started          time.Time            `json:"started"`
	Ended            *time.Time           `json:"ended,omitempty"`
	SeekersReleased  *time.Time           `json:"seekers_released,omitempty"`
	LastReveal       *time.Time           `json:"last_reveal,omitempty"`
	LastPowerUpSpawn *time.Time           `json:"last_powerup_spawn,omitempty"`
	// PendingReports counts participants whose final report has not arrived.
	// It is only meaningful once Ended is set.
	PendingReports int `json:"pending_reports"`
}

// IsSeeker reports whether the local participant is a seeker.
func (u UiState) IsSeeker() bool {
	return u.Caught[u.ID]
}

// Seekers counts participants currently seeking.
func (u UiState) Seekers() int {
	n := 0
	for _, c := range u.Caught {
		if c {
			n++
		}
	}
	return n
}
