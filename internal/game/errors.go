package game

import "errors"

var (
	ErrUnknownEvent     = errors.New("unknown event kind")
	ErrNoPowerUpOnMap   = errors.New("no power-up on the map")
	ErrNoPowerUpHeld    = errors.New("no power-up held")
	ErrSessionEnded     = errors.New("session has ended")
	ErrUnknownPowerType = errors.New("unknown power-up type")
)
