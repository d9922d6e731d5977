package testutil

import (
	"math/rand"
	"sync"
)

// ScriptedRand replays queued Float64 draws before falling back to a seeded
// source. Intn always uses the fallback. It satisfies plate.Rand.
type ScriptedRand struct {
	mu     sync.Mutex
	floats []float64
	rng    *rand.Rand
}

// NewScriptedRand creates a ScriptedRand with a deterministic fallback.
func NewScriptedRand(seed int64, floats ...float64) *ScriptedRand {
	return &ScriptedRand{floats: floats, rng: rand.New(rand.NewSource(seed))}
}

// Push queues more Float64 draws.
func (r *ScriptedRand) Push(floats ...float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.floats = append(r.floats, floats...)
}

func (r *ScriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) > 0 {
		f := r.floats[0]
		r.floats = r.floats[1:]
		return f
	}
	return r.rng.Float64()
}

func (r *ScriptedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}
