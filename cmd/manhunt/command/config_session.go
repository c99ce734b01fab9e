package command

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/BurntSushi/toml"
	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-manhunt/internal/game"
	"github.com/pixil98/go-manhunt/internal/transport"
)

type SessionConfig struct {
	// Room to join. Empty generates a fresh code to hand to the others.
	Room    string `json:"room"`
	Players int    `json:"players"`
	Seekers int    `json:"seekers"`
	// SettingsPath points at a TOML file of game settings. Only the
	// settings of whoever starts the session are used.
	SettingsPath string          `json:"settings_path"`
	Location     *LocationConfig `json:"location"`
}

type LocationConfig struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

func (c *SessionConfig) validate() error {
	el := errors.NewErrorList()

	if c.Room != "" && !transport.ValidRoomCode(c.Room) {
		el.Add(fmt.Errorf("room %q is not a valid room code", c.Room))
	}
	if c.Players < 1 {
		el.Add(fmt.Errorf("players must be at least 1"))
	}
	if c.Seekers < 1 || c.Seekers > c.Players {
		el.Add(fmt.Errorf("seekers must be between 1 and players"))
	}
	if c.Location != nil {
		if c.Location.Lat < -90 || c.Location.Lat > 90 {
			el.Add(fmt.Errorf("location lat must be between -90 and 90"))
		}
		if c.Location.Long < -180 || c.Location.Long > 180 {
			el.Add(fmt.Errorf("location long must be between -180 and 180"))
		}
	}

	return el.Err()
}

// loadSettings reads the settings file over the defaults. A file without a
// seed, or no file at all, gets a random one.
func (c *SessionConfig) loadSettings() (game.Settings, error) {
	settings := game.DefaultSettings(rand.Uint32())
	if c.SettingsPath == "" {
		return settings, nil
	}

	meta, err := toml.DecodeFile(c.SettingsPath, &settings)
	if err != nil {
		return game.Settings{}, fmt.Errorf("loading settings %q: %w", c.SettingsPath, err)
	}
	for _, key := range meta.Undecoded() {
		slog.Warn("ignoring unknown setting", "path", c.SettingsPath, "key", key.String())
	}
	if !meta.IsDefined("seed") {
		settings.Seed = rand.Uint32()
	}

	if err := settings.Validate(); err != nil {
		return game.Settings{}, fmt.Errorf("validating settings %q: %w", c.SettingsPath, err)
	}
	return settings, nil
}

func (c *SessionConfig) location() *game.Location {
	if c.Location == nil {
		return nil
	}
	return &game.Location{Lat: c.Location.Lat, Long: c.Location.Long}
}
