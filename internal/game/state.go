package game

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// State is one participant's replica of the session. It performs no I/O and
// is not safe for concurrent use; the driver serializes every call.
type State struct {
	id       uuid.UUID
	settings Settings

	held    *PowerUpType
	started time.Time
	ended   *time.Time

	caught  map[uuid.UUID]bool
	reveals map[uuid.UUID]Reveal
	powerUp *Location

	seekersReleased *time.Time
	lastReveal      *time.Time
	lastSpawn       *time.Time
	lastRoll        *time.Time

	events  []LoggedEvent
	history []LocationSample

	// finalReports holds the history of every participant that has reported
	// since the session ended. Presence of a key means the report arrived.
	// Departures do not remove entries.
	finalReports map[uuid.UUID][]LocationSample

	shared sharedRand
}

// TickResult is what one Tick produced.
type TickResult struct {
	// Events have to be broadcast to every participant, self included.
	Events []Event
	// Done is set once the session has ended and every final report is in.
	Done bool
	// Changed is set when anything a player can see moved.
	Changed bool
}

// NewState builds the replica for id. initialCaught must contain every
// participant, id included.
func NewState(settings Settings, id uuid.UUID, initialCaught map[uuid.UUID]bool, now time.Time) *State {
	caught := make(map[uuid.UUID]bool, len(initialCaught))
	for pid, c := range initialCaught {
		caught[pid] = c
	}

	return &State{
		id:           id,
		settings:     settings,
		started:      now,
		caught:       caught,
		reveals:      make(map[uuid.UUID]Reveal, len(caught)),
		events:       make([]LoggedEvent, 0, 16),
		history:      make([]LocationSample, 0, 32),
		finalReports: make(map[uuid.UUID][]LocationSample, len(caught)),
		shared:       newSharedRand(settings.Seed),
	}
}

func (s *State) ID() uuid.UUID {
	return s.id
}

func (s *State) Settings() Settings {
	return s.settings
}

// Tick advances the timed rules to now. loc is the current device location,
// nil when none is available.
func (s *State) Tick(now time.Time, loc *Location) TickResult {
	var res TickResult

	if s.ended == nil && s.allCaught() {
		ended := now
		s.ended = &ended
		report := slices.Clone(s.history)
		s.finalReports[s.id] = report
		res.Events = append(res.Events, FinalLocationReport{ID: s.id, History: report})
		res.Changed = true
	}

	if s.ended != nil {
		res.Done = s.reportsComplete()
		return res
	}

	if loc != nil {
		s.history = append(s.history, LocationSample{At: now, Location: *loc})
	}

	if s.seekersReleased == nil && now.Sub(s.started) >= time.Duration(s.settings.HidingSeconds)*time.Second {
		s.seekersReleased = timePtr(now)
		res.Changed = true
	}

	if s.lastReveal == nil && s.conditionMet(s.settings.RevealStart, now) {
		s.lastReveal = timePtr(now)
		res.Changed = true
	}

	if s.revealDue(now) {
		if ev, ok := s.scheduledReveal(now); ok {
			res.Events = append(res.Events, ev)
			s.lastReveal = timePtr(now)
			res.Changed = true
		}
	}

	if s.lastSpawn == nil && len(s.settings.PowerUpLocations) > 0 && s.conditionMet(s.settings.PowerUpStart, now) {
		s.lastSpawn = timePtr(now)
		res.Changed = true
	}

	if s.rollDue(now) {
		if s.rollPowerUp(now) {
			res.Changed = true
		}
	}

	return res
}

// scheduledReveal builds this tick's reveal. A held RevealSeekerAsMe is spent
// here, asking a seeker to reveal under our id instead of revealing ourselves.
func (s *State) scheduledReveal(now time.Time) (Event, bool) {
	if s.held != nil && *s.held == RevealSeekerAsMe {
		if seeker, ok := s.randomSeeker(); ok {
			s.held = nil
			self := s.id
			return ForceReveal{Target: seeker, DisguiseAs: &self}, true
		}
	}

	r, ok := s.revealAs(s.id, now)
	if !ok {
		return nil, false
	}
	return RevealEvent{Reveal: r}, true
}

// rollPowerUp draws once from the shared source. The Bernoulli trial always
// comes first so every replica consumes the generator identically.
func (s *State) rollPowerUp(now time.Time) bool {
	s.lastRoll = timePtr(now)

	r := s.shared.next()
	if !bernoulli(r, s.settings.PowerUpChance) {
		return false
	}

	loc := s.settings.PowerUpLocations[r.IntN(len(s.settings.PowerUpLocations))]
	s.powerUp = &loc
	s.lastSpawn = timePtr(now)
	return true
}

func (s *State) revealDue(now time.Time) bool {
	if s.caught[s.id] || s.lastReveal == nil {
		return false
	}
	return wholeMinutes(*s.lastReveal, now) >= s.settings.RevealIntervalMinutes
}

func (s *State) rollDue(now time.Time) bool {
	if s.lastSpawn == nil || len(s.settings.PowerUpLocations) == 0 {
		return false
	}
	if wholeMinutes(*s.lastSpawn, now) < s.settings.PowerUpCooldownMinutes {
		return false
	}
	return s.lastRoll == nil || now.Sub(*s.lastRoll) >= time.Minute
}

func (s *State) conditionMet(c StartCondition, now time.Time) bool {
	switch c.Kind {
	case StartInstant:
		return true
	case StartOnSeekers:
		return uint32(len(s.seekers())) >= c.Value
	case StartAfterMinutes:
		return s.seekersReleased != nil && wholeMinutes(*s.seekersReleased, now) >= c.Value
	default:
		return false
	}
}

// Consume applies an event received from any participant, self included,
// and returns the events it triggers.
func (s *State) Consume(now time.Time, ev Event) []Event {
	if ev == nil {
		return nil
	}

	if _, final := ev.(FinalLocationReport); s.ended == nil || final {
		s.events = append(s.events, LoggedEvent{At: now, Event: ev})
	}

	switch e := ev.(type) {
	case RevealEvent:
		if _, known := s.caught[e.Reveal.Display]; known {
			s.reveals[e.Reveal.Display] = e.Reveal
		}
	case ForceReveal:
		if e.Target != s.id {
			return nil
		}
		display := s.id
		if e.DisguiseAs != nil {
			display = *e.DisguiseAs
		}
		if r, ok := s.revealAs(display, now); ok {
			return []Event{RevealEvent{Reveal: r}}
		}
	case ParticipantCaught:
		if _, known := s.caught[e.ID]; known {
			s.caught[e.ID] = true
			delete(s.reveals, e.ID)
		}
	case PowerUpDespawned:
		s.powerUp = nil
	case ParticipantLeft:
		s.RemoveParticipant(e.ID)
	case FinalLocationReport:
		if _, known := s.caught[e.ID]; known {
			s.finalReports[e.ID] = e.History
		}
	}

	return nil
}

// RemoveParticipant forgets id. A departed participant is no longer waited
// on for a final report, but a report that already arrived is kept for the
// history.
func (s *State) RemoveParticipant(id uuid.UUID) {
	delete(s.caught, id)
	delete(s.reveals, id)
}

// MarkSelfCaught turns the local participant into a seeker. Calling it again
// once caught does nothing.
func (s *State) MarkSelfCaught() []Event {
	if s.caught[s.id] {
		return nil
	}
	s.caught[s.id] = true
	delete(s.reveals, s.id)
	s.held = nil
	return []Event{ParticipantCaught{ID: s.id}}
}

// AcquirePowerUp picks up the on-map power-up and rolls its type locally.
func (s *State) AcquirePowerUp() ([]Event, error) {
	if s.ended != nil {
		return nil, ErrSessionEnded
	}
	if s.powerUp == nil {
		return nil, ErrNoPowerUpOnMap
	}

	t := AllPowerUpTypes[rand.IntN(len(AllPowerUpTypes))]
	s.held = &t
	return []Event{PowerUpDespawned{Taker: s.id}}, nil
}

// UseHeldPowerUp removes and returns the held power-up.
func (s *State) UseHeldPowerUp() (PowerUpType, bool) {
	if s.held == nil {
		return 0, false
	}
	t := *s.held
	s.held = nil
	return t, true
}

// PowerUpEffect returns the events that carry out a just-used power-up.
// RevealSeekerAsMe has no immediate effect; it goes back to being held and
// fires on the next scheduled reveal.
func (s *State) PowerUpEffect(t PowerUpType) []Event {
	switch t {
	case RevealAllSeekers:
		seekers := s.seekers()
		evs := make([]Event, 0, len(seekers))
		for _, id := range seekers {
			evs = append(evs, ForceReveal{Target: id})
		}
		return evs
	case ForceOtherReveal:
		target, ok := s.randomOtherHider()
		if !ok {
			target, ok = s.randomSeeker()
		}
		if !ok {
			return nil
		}
		return []Event{ForceReveal{Target: target}}
	case RevealSeekerAsMe:
		s.held = &t
		return nil
	default:
		return nil
	}
}

// ForceSetPowerUp hands the local participant a power-up without picking one
// up from the map.
func (s *State) ForceSetPowerUp(t PowerUpType) {
	s.held = &t
}

func (s *State) HeldPowerUp() *PowerUpType {
	return s.held
}

// AvailablePowerUp is the location of the on-map power-up, if any.
func (s *State) AvailablePowerUp() *Location {
	return s.powerUp
}

// SharedCursor exposes the shared random cursor so replicas can be compared.
func (s *State) SharedCursor() uint64 {
	return s.shared.cursor
}

func (s *State) IsSeeker() bool {
	return s.caught[s.id]
}

func (s *State) Caught(id uuid.UUID) (bool, bool) {
	c, ok := s.caught[id]
	return c, ok
}

func (s *State) RevealFor(id uuid.UUID) (Reveal, bool) {
	r, ok := s.reveals[id]
	return r, ok
}

func (s *State) SeekersReleased() bool {
	return s.seekersReleased != nil
}

func (s *State) RevealsStarted() bool {
	return s.lastReveal != nil
}

func (s *State) Ended() bool {
	return s.ended != nil
}

func (s *State) Events() []LoggedEvent {
	return slices.Clone(s.events)
}

// Snapshot copies out everything a player-facing surface shows.
func (s *State) Snapshot() UiState {
	caught := make(map[uuid.UUID]bool, len(s.caught))
	for id, c := range s.caught {
		caught[id] = c
	}
	reveals := make(map[uuid.UUID]Reveal, len(s.reveals))
	for id, r := range s.reveals {
		reveals[id] = r
	}

	return UiState{
		ID:               s.id,
		Caught:           caught,
		Reveals:          reveals,
		AvailablePowerUp: copyPtr(s.powerUp),
		HeldPowerUp:      copyPtr(s.held),
		Started:          s.started,
		Ended:            copyPtr(s.ended),
		SeekersReleased:  copyPtr(s.seekersReleased),
		LastReveal:       copyPtr(s.lastReveal),
		LastPowerUpSpawn: copyPtr(s.lastSpawn),
		PendingReports:   s.pendingReports(),
	}
}

// History builds the record of the session. It covers every participant
// still known plus anyone who reported before leaving; those that never
// reported get an empty location history.
func (s *State) History() History {
	locs := make(map[uuid.UUID][]LocationSample, len(s.caught))
	for id := range s.caught {
		locs[id] = s.finalReports[id]
	}
	for id, report := range s.finalReports {
		locs[id] = report
	}

	h := History{
		ID:        s.id,
		Started:   s.started,
		Events:    slices.Clone(s.events),
		Locations: locs,
	}
	if s.ended != nil {
		h.Ended = *s.ended
	}
	return h
}

func (s *State) allCaught() bool {
	for _, c := range s.caught {
		if !c {
			return false
		}
	}
	return true
}

func (s *State) reportsComplete() bool {
	return s.pendingReports() == 0
}

func (s *State) pendingReports() int {
	n := 0
	for id := range s.caught {
		if _, ok := s.finalReports[id]; !ok {
			n++
		}
	}
	return n
}

// revealAs builds a reveal of our last known location shown as display.
func (s *State) revealAs(display uuid.UUID, now time.Time) (Reveal, bool) {
	if len(s.history) == 0 {
		return Reveal{}, false
	}
	return Reveal{
		Location: s.history[len(s.history)-1].Location,
		At:       now,
		Display:  display,
		Real:     s.id,
	}, true
}

// seekers lists seeker ids in a stable order.
func (s *State) seekers() []uuid.UUID {
	return s.filter(func(id uuid.UUID, caught bool) bool { return caught })
}

func (s *State) randomSeeker() (uuid.UUID, bool) {
	return pick(s.seekers())
}

func (s *State) randomOtherHider() (uuid.UUID, bool) {
	return pick(s.filter(func(id uuid.UUID, caught bool) bool {
		return !caught && id != s.id
	}))
}

func (s *State) filter(keep func(uuid.UUID, bool) bool) []uuid.UUID {
	var ids []uuid.UUID
	for id, c := range s.caught {
		if keep(id, c) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// pick chooses with local randomness; peers never need to agree on it.
func pick(ids []uuid.UUID) (uuid.UUID, bool) {
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	return ids[rand.IntN(len(ids))], true
}

func wholeMinutes(from, to time.Time) uint32 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return uint32(d / time.Minute)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
