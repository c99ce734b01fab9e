package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind tags each Event variant on the wire and in saved histories.
type EventKind uint8

const (
	KindParticipantCaught EventKind = iota + 1
	KindReveal
	KindForceReveal
	KindPowerUpDespawned
	KindFinalLocationReport
	KindParticipantLeft
)

func (k EventKind) String() string {
	switch k {
	case KindParticipantCaught:
		return "participant-caught"
	case KindReveal:
		return "reveal"
	case KindForceReveal:
		return "force-reveal"
	case KindPowerUpDespawned:
		return "powerup-despawned"
	case KindFinalLocationReport:
		return "final-location-report"
	case KindParticipantLeft:
		return "participant-left"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is the unit of replication between participants. The set of variants
// is closed; adding one means updating every switch over Event.
type Event interface {
	Kind() EventKind
	isEvent()
}

// Reveal discloses a location. Display is who the map shows; Real is who
// actually sent it, which differs when a power-up disguises the source.
type Reveal struct {
	Location Location  `json:"location"`
	At       time.Time `json:"at"`
	Display  uuid.UUID `json:"display"`
	Real     uuid.UUID `json:"real"`
}

// ParticipantCaught marks ID as a seeker.
type ParticipantCaught struct {
	ID uuid.UUID `json:"id"`
}

// RevealEvent publishes a reveal record.
type RevealEvent struct {
	Reveal Reveal `json:"reveal"`
}

// ForceReveal asks Target to reveal now, optionally showing as DisguiseAs.
type ForceReveal struct {
	Target     uuid.UUID  `json:"target"`
	DisguiseAs *uuid.UUID `json:"disguise_as,omitempty"`
}

// PowerUpDespawned removes the on-map power-up because Taker picked it up.
type PowerUpDespawned struct {
	Taker uuid.UUID `json:"taker"`
}

// FinalLocationReport carries a participant's whole location history once
// the session has ended.
type FinalLocationReport struct {
	ID      uuid.UUID        `json:"id"`
	History []LocationSample `json:"history"`
}

// ParticipantLeft is synthesized locally when the transport loses a peer.
type ParticipantLeft struct {
	ID uuid.UUID `json:"id"`
}

func (ParticipantCaught) Kind() EventKind   { return KindParticipantCaught }
func (RevealEvent) Kind() EventKind         { return KindReveal }
func (ForceReveal) Kind() EventKind         { return KindForceReveal }
func (PowerUpDespawned) Kind() EventKind    { return KindPowerUpDespawned }
func (FinalLocationReport) Kind() EventKind { return KindFinalLocationReport }
func (ParticipantLeft) Kind() EventKind     { return KindParticipantLeft }

func (ParticipantCaught) isEvent()   {}
func (RevealEvent) isEvent()         {}
func (ForceReveal) isEvent()         {}
func (PowerUpDespawned) isEvent()    {}
func (FinalLocationReport) isEvent() {}
func (ParticipantLeft) isEvent()     {}

// DecodeEvent builds the variant for kind, letting decode fill it in. decode
// receives a pointer to the zero value of the variant.
func DecodeEvent(kind EventKind, decode func(any) error) (Event, error) {
	switch kind {
	case KindParticipantCaught:
		var e ParticipantCaught
		err := decode(&e)
		return e, wrapDecode(kind, err)
	case KindReveal:
		var e RevealEvent
		err := decode(&e)
		return e, wrapDecode(kind, err)
	case KindForceReveal:
		var e ForceReveal
		err := decode(&e)
		return e, wrapDecode(kind, err)
	case KindPowerUpDespawned:
		var e PowerUpDespawned
		err := decode(&e)
		return e, wrapDecode(kind, err)
	case KindFinalLocationReport:
		var e FinalLocationReport
		err := decode(&e)
		return e, wrapDecode(kind, err)
	case KindParticipantLeft:
		var e ParticipantLeft
		err := decode(&e)
		return e, wrapDecode(kind, err)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, uint8(kind))
	}
}

func wrapDecode(kind EventKind, err error) error {
	if err != nil {
		return fmt.Errorf("decoding %s: %w", kind, err)
	}
	return nil
}

// LoggedEvent is one entry of the session event log.
type LoggedEvent struct {
	At    time.Time
	Event Event
}

type loggedEventJSON struct {
	At    time.Time       `json:"at"`
	Kind  EventKind       `json:"kind"`
	Event json.RawMessage `json:"event"`
}

func (l LoggedEvent) MarshalJSON() ([]byte, error) {
	if l.Event == nil {
		return nil, fmt.Errorf("logged event at %s has no event", l.At)
	}
	body, err := json.Marshal(l.Event)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", l.Event.Kind(), err)
	}
	return json.Marshal(loggedEventJSON{At: l.At, Kind: l.Event.Kind(), Event: body})
}

func (l *LoggedEvent) UnmarshalJSON(b []byte) error {
	var raw loggedEventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ev, err := DecodeEvent(raw.Kind, func(v any) error {
		return json.Unmarshal(raw.Event, v)
	})
	if err != nil {
		return err
	}
	l.At = raw.At
	l.Event = ev
	return nil
}
