package game

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestNewSharedRand(t *testing.T) {
	for seed := uint32(0); seed < 500; seed++ {
		r := newSharedRand(seed)
		if r.increment == 0 || r.increment < -99 || r.increment > 100 {
			t.Fatalf("seed %d: increment %d out of range", seed, r.increment)
		}
		testutil.AssertEqual(t, "cursor", r.cursor, uint64(seed))
	}
}

func TestSharedRand_Lockstep(t *testing.T) {
	a, b := newSharedRand(1234), newSharedRand(1234)

	for i := 0; i < 20; i++ {
		before := a.cursor
		ra, rb := a.next(), b.next()

		testutil.AssertEqual(t, "draw", ra.Uint64(), rb.Uint64())
		testutil.AssertEqual(t, "step", a.cursor, uint64(int64(before)+a.increment))
	}
}

func TestSharedRand_WrapsBelowZero(t *testing.T) {
	r := sharedRand{cursor: 0, increment: -1}

	r.next()

	testutil.AssertEqual(t, "cursor", r.cursor, ^uint64(0))
}

func TestBernoulli(t *testing.T) {
	tests := map[string]struct {
		percent uint32
		exp     bool
	}{
		"never":  {percent: 0, exp: false},
		"always": {percent: 100, exp: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSharedRand(99)
			for i := 0; i < 50; i++ {
				testutil.AssertEqual(t, "roll", bernoulli(s.next(), tt.percent), tt.exp)
			}
		})
	}
}
