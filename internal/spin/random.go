package spin

import (
	"math/rand/v2"
	"sync"
)

// Random is the source of every draw the engine makes
type Random interface {
	IntN(n int) int
	Int64N(n int64) int64
	Float64() float64
}

// globalRandom uses the runtime-seeded, goroutine-safe top-level generator
type globalRandom struct{}

func (globalRandom) IntN(n int) int       { return rand.IntN(n) }
func (globalRandom) Int64N(n int64) int64 { return rand.Int64N(n) }
func (globalRandom) Float64() float64     { return rand.Float64() }

// lockedRandom serialises access to a seeded generator
type lockedRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededRandom returns a deterministic, goroutine-safe Random
func NewSeededRandom(seed uint64) Random {
	return &lockedRandom{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *lockedRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}

func (r *lockedRandom) Int64N(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int64N(n)
}

func (r *lockedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}
