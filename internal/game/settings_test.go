package game

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestSettings_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Settings)
		expErr string
	}{
		"defaults are valid": {
			mutate: func(*Settings) {},
		},
		"chance over 100": {
			mutate: func(s *Settings) { s.PowerUpChance = 101 },
			expErr: "powerup_chance",
		},
		"unknown reveal start": {
			mutate: func(s *Settings) { s.RevealStart.Kind = StartKind(9) },
			expErr: "reveal_start",
		},
		"unknown powerup start": {
			mutate: func(s *Settings) { s.PowerUpStart.Kind = StartKind(9) },
			expErr: "powerup_start",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings(1)
			tt.mutate(&s)

			err := s.Validate()
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

func TestStartKind_UnmarshalText(t *testing.T) {
	tests := map[string]struct {
		text   string
		exp    StartKind
		expErr string
	}{
		"instant": {text: "instant", exp: StartInstant},
		"seekers": {text: "seekers", exp: StartOnSeekers},
		"players": {text: "players", exp: StartOnSeekers},
		"minutes": {text: "minutes", exp: StartAfterMinutes},
		"unknown": {text: "hours", expErr: "unknown start condition"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var k StartKind
			err := k.UnmarshalText([]byte(tt.text))
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "kind", k, tt.exp)
		})
	}
}

func TestPowerUpType_UnmarshalText(t *testing.T) {
	for _, typ := range AllPowerUpTypes {
		var got PowerUpType
		if err := got.UnmarshalText([]byte(typ.String())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		testutil.AssertEqual(t, typ.String(), got, typ)
	}

	var p PowerUpType
	testutil.AssertErrorContains(t, p.UnmarshalText([]byte("teleport")), "unknown power-up type")
}
