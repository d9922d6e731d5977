package plate

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
)

// Rand is the random source used by every generator in the game.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a Rand seeded from seed, or from the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

var plateSeq int64

// NextID returns a process-unique plate identifier.
func NextID() string {
	return fmt.Sprintf("plate-%d", atomic.AddInt64(&plateSeq, 1))
}

func pick(rng Rand, from []string) string {
	return from[rng.Intn(len(from))]
}

func digits(rng Rand, n int) string {
	limit := 1
	for i := 0; i < n; i++ {
		limit *= 10
	}
	return fmt.Sprintf("%0*d", n, rng.Intn(limit))
}
