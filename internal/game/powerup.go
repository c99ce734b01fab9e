package game

import "fmt"

// PowerUpType is what a picked-up power-up does once used.
type PowerUpType uint8

const (
	// RevealSeekerAsMe makes the holder's next scheduled reveal show a random
	// seeker's location under the holder's name.
	RevealSeekerAsMe PowerUpType = iota + 1
	// RevealAllSeekers makes every seeker reveal themselves once, immediately.
	RevealAllSeekers
	// ForceOtherReveal makes another random hider reveal immediately.
	ForceOtherReveal
)

// AllPowerUpTypes lists every type a pickup can roll.
var AllPowerUpTypes = []PowerUpType{
	ForceOtherReveal,
	RevealAllSeekers,
	RevealSeekerAsMe,
}

func (p PowerUpType) String() string {
	switch p {
	case RevealSeekerAsMe:
		return "reveal-seeker-as-me"
	case RevealAllSeekers:
		return "reveal-all-seekers"
	case ForceOtherReveal:
		return "force-other-reveal"
	default:
		return fmt.Sprintf("PowerUpType(%d)", uint8(p))
	}
}

func (p PowerUpType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PowerUpType) UnmarshalText(text []byte) error {
	for _, t := range AllPowerUpTypes {
		if t.String() == string(text) {
			*p = t
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPowerType, text)
}
