package subordinate

import (
	"math/rand/v2"
)

// MaxExtraDelay is the largest number of cycles a backpressure draw can add.
const MaxExtraDelay = 8

// backpressure decides how long each access is stalled. Every instance owns
// its generator so that runs with the same seed repeat exactly.
type backpressure struct {
	enabled bool
	seed    int64
	rng     *rand.Rand
}

func newBackpressure(seed int64) *backpressure {
	b := &backpressure{}
	b.reseed(seed)

	return b
}

func randomSeed() int64 {
	return rand.Int64N(0x1000000)
}

func (b *backpressure) reseed(seed int64) {
	b.seed = seed
	b.rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// delay draws the number of extra cycles of the next access. A quarter of
// the accesses get an extra delay in [0, MaxExtraDelay].
func (b *backpressure) delay() int {
	if !b.enabled {
		return 0
	}

	if b.rng.IntN(4) != 0 {
		return 0
	}

	return b.rng.IntN(MaxExtraDelay + 1)
}
