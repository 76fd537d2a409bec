package ingest

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource supplies pre-dispatch jitter.
// Implemented by UniformRandom (production) and testutil.FixedRandom (tests).
type RandomSource interface {
	// Between returns a duration uniformly distributed in [min, max] inclusive.
	Between(min, max time.Duration) time.Duration
}

// UniformRandom draws jitter from a uniform distribution.
//
// Thread-safety: safe for concurrent use.
type UniformRandom struct {
	mu  sync.Mutex
	rng *rand.Rand // nil means the runtime's global source
}

// NewUniformRandom returns a source backed by the runtime's random generator.
func NewUniformRandom() *UniformRandom {
	return &UniformRandom{}
}

// NewSeededRandom returns a reproducible source.
func NewSeededRandom(seed uint64) *UniformRandom {
	return &UniformRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Between returns a duration in [min, max]. Bounds are swapped if reversed.
func (r *UniformRandom) Between(min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	span := int64(max-min) + 1
	if span <= 1 {
		return min
	}

	if r.rng == nil {
		return min + time.Duration(rand.Int64N(span))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + time.Duration(r.rng.Int64N(span))
}
