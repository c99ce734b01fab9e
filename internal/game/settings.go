package game

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// StartKind selects what has to happen before a periodic mechanic begins.
type StartKind uint8

const (
	// StartInstant begins right away.
	StartInstant StartKind = iota
	// StartOnSeekers waits until Value participants are seekers.
	StartOnSeekers
	// StartAfterMinutes waits Value minutes after seekers are released.
	StartAfterMinutes
)

func (k StartKind) String() string {
	switch k {
	case StartInstant:
		return "instant"
	case StartOnSeekers:
		return "seekers"
	case StartAfterMinutes:
		return "minutes"
	default:
		return fmt.Sprintf("StartKind(%d)", uint8(k))
	}
}

func (k StartKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StartKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "instant":
		*k = StartInstant
	case "seekers", "players":
		*k = StartOnSeekers
	case "minutes":
		*k = StartAfterMinutes
	default:
		return fmt.Errorf("unknown start condition: %s", text)
	}
	return nil
}

// StartCondition gates reveals and power-up rolls.
type StartCondition struct {
	Kind  StartKind `json:"kind" toml:"kind"`
	Value uint32    `json:"value,omitempty" toml:"value"`
}

// Settings are agreed on before the session starts and never change after.
type Settings struct {
	// Seed feeds the shared random source every replica draws from.
	Seed uint32 `json:"seed" toml:"seed"`
	// HidingSeconds is how long seekers wait before they are released.
	HidingSeconds uint32 `json:"hiding_seconds" toml:"hiding_seconds"`

	RevealStart           StartCondition `json:"reveal_start" toml:"reveal_start"`
	RevealIntervalMinutes uint32         `json:"reveal_interval_minutes" toml:"reveal_interval_minutes"`

	PowerUpStart StartCondition `json:"powerup_start" toml:"powerup_start"`
	// PowerUpChance is the percent chance, out of 100, that a roll spawns a power-up.
	PowerUpChance          uint32     `json:"powerup_chance" toml:"powerup_chance"`
	PowerUpCooldownMinutes uint32     `json:"powerup_cooldown_minutes" toml:"powerup_cooldown_minutes"`
	PowerUpLocations       []Location `json:"powerup_locations" toml:"powerup_locations"`
}

// DefaultSettings mirrors what a host starts from before tweaking anything.
func DefaultSettings(seed uint32) Settings {
	return Settings{
		Seed:                   seed,
		HidingSeconds:          60,
		RevealStart:            StartCondition{Kind: StartOnSeekers, Value: 2},
		RevealIntervalMinutes:  3,
		PowerUpStart:           StartCondition{Kind: StartAfterMinutes, Value: 5},
		PowerUpChance:          25,
		PowerUpCooldownMinutes: 5,
	}
}

func (s *Settings) Validate() error {
	el := errors.NewErrorList()

	if s.PowerUpChance > 100 {
		el.Add(fmt.Errorf("powerup_chance must be between 0 and 100"))
	}

	el.Add(s.RevealStart.validate("reveal_start"))
	el.Add(s.PowerUpStart.validate("powerup_start"))

	return el.Err()
}

func (c StartCondition) validate(name string) error {
	switch c.Kind {
	case StartInstant, StartOnSeekers, StartAfterMinutes:
		return nil
	default:
		return fmt.Errorf("%s: unknown kind %s", name, c.Kind)
	}
}
