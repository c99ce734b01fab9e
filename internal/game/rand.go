package game

import (
	"encoding/binary"
	"math/rand/v2"
)

// sharedRand is randomness every replica draws identically. Each draw reseeds
// a generator from the cursor and then moves the cursor by a fixed step, so
// replicas stay in lockstep as long as they roll the same number of times.
type sharedRand struct {
	cursor    uint64
	increment int64
}

func newSharedRand(seed uint32) sharedRand {
	r := rand.New(rand.NewChaCha8(chachaSeed(uint64(seed))))

	// Never zero, a zero step would hand out the same generator forever.
	inc := int64(r.IntN(199)) - 99
	if inc >= 0 {
		inc++
	}

	return sharedRand{
		cursor:    uint64(seed),
		increment: inc,
	}
}

// next returns a generator for one deterministic roll and advances the cursor.
func (s *sharedRand) next() *rand.Rand {
	r := rand.New(rand.NewChaCha8(chachaSeed(s.cursor)))
	s.cursor = uint64(int64(s.cursor) + s.increment)
	return r
}

func chachaSeed(v uint64) [32]byte {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:8], v)
	return seed
}

// bernoulli reports true with probability percent/100.
func bernoulli(r *rand.Rand, percent uint32) bool {
	return uint32(r.IntN(100)) < percent
}
