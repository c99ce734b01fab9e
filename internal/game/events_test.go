package game

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/pixil98/go-testutil"
)

func TestLoggedEvent_JSON(t *testing.T) {
	target, disguise := uuid.New(), uuid.New()
	in := LoggedEvent{At: t0, Event: ForceReveal{Target: target, DisguiseAs: &disguise}}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out LoggedEvent
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	force, ok := out.Event.(ForceReveal)
	if !ok {
		t.Fatalf("expected ForceReveal, got %T", out.Event)
	}
	testutil.AssertEqual(t, "at", out.At.Equal(t0), true)
	testutil.AssertEqual(t, "target", force.Target, target)
	testutil.AssertEqual(t, "disguise", *force.DisguiseAs, disguise)
}

func TestDecodeEvent(t *testing.T) {
	tests := map[string]struct {
		kind    EventKind
		expKind EventKind
		expErr  string
	}{
		"caught":       {kind: KindParticipantCaught, expKind: KindParticipantCaught},
		"reveal":       {kind: KindReveal, expKind: KindReveal},
		"force":        {kind: KindForceReveal, expKind: KindForceReveal},
		"despawn":      {kind: KindPowerUpDespawned, expKind: KindPowerUpDespawned},
		"final report": {kind: KindFinalLocationReport, expKind: KindFinalLocationReport},
		"left":         {kind: KindParticipantLeft, expKind: KindParticipantLeft},
		"unknown":      {kind: EventKind(42), expErr: "unknown event kind"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ev, err := DecodeEvent(tt.kind, func(any) error { return nil })
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "kind", ev.Kind(), tt.expKind)
		})
	}
}

func TestDecodeEvent_DecodeFailure(t *testing.T) {
	_, err := DecodeEvent(KindReveal, func(v any) error {
		return json.Unmarshal([]byte("{"), v)
	})

	testutil.AssertErrorContains(t, err, "decoding reveal")
}

func TestHistory_Validate(t *testing.T) {
	tests := map[string]struct {
		history History
		expErr  string
	}{
		"valid": {
			history: History{ID: uuid.New(), Started: t0, Ended: t0.Add(1)},
		},
		"missing id": {
			history: History{Started: t0, Ended: t0},
			expErr:  "id must be set",
		},
		"ended before start": {
			history: History{ID: uuid.New(), Started: t0, Ended: t0.Add(-1)},
			expErr:  "ended must not be before started",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.history.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}
