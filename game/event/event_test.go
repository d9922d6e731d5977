package event

import (
	"math/rand"
	"testing"
	"time"

	"github.com/kasuganosora/platemarket/game/plate"
	"github.com/kasuganosora/platemarket/game/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replays fixed Float64 draws and picks Intn results in order.
type scripted struct {
	floats []float64
	ints   []int
}

func (s *scripted) Float64() float64 {
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scripted) Intn(n int) int {
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func market() []shop.Listing {
	return []shop.Listing{
		{Plate: plate.Plate{ID: "e", Rarity: plate.Elite}, Price: 1_000_001},
		{Plate: plate.Plate{ID: "o", Rarity: plate.Ordinary}, Price: 20_001},
	}
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestRoll_BelowChanceDoesNothing(t *testing.T) {
	b := NewBoard(DefaultConfig())
	ls := market()
	_, fired := b.Roll(&scripted{floats: []float64{0.5}}, t0, ls)
	assert.False(t, fired)
	assert.Equal(t, market(), ls)
	assert.Empty(t, b.Banner(t0))
}

func TestRoll_EliteDemand(t *testing.T) {
	b := NewBoard(DefaultConfig())
	ls := market()
	e, fired := b.Roll(&scripted{floats: []float64{0.95}, ints: []int{0}}, t0, ls)
	require.True(t, fired)
	assert.Equal(t, EliteDemand, e.Kind)
	assert.Equal(t, int64(1_500_001), ls[0].Price)
	assert.Equal(t, int64(20_001), ls[1].Price)
}

func TestFire_MarketBoom(t *testing.T) {
	b := NewBoard(DefaultConfig())
	ls := market()
	b.Fire(Catalog[1], t0, ls)
	assert.Equal(t, int64(800_000), ls[0].Price)
	assert.Equal(t, int64(16_000), ls[1].Price)
}

func TestFire_FreeBoxExpires(t *testing.T) {
	b := NewBoard(DefaultConfig())
	b.Fire(Catalog[2], t0, nil)

	assert.Equal(t, int64(0), b.BoxCost(t0.Add(59*time.Second), 5000))
	assert.Equal(t, t0.Add(time.Minute), b.FreeBoxUntil(t0))
	assert.Equal(t, int64(5000), b.BoxCost(t0.Add(time.Minute), 5000))
	assert.True(t, b.FreeBoxUntil(t0.Add(2*time.Minute)).IsZero())
}

func TestBanner_Expires(t *testing.T) {
	b := NewBoard(DefaultConfig())
	b.Fire(Catalog[0], t0, nil)
	assert.Equal(t, Catalog[0].Text, b.Banner(t0.Add(9*time.Second)))
	assert.Empty(t, b.Banner(t0.Add(10*time.Second)))
}

func TestRoll_FiringRate(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	b := NewBoard(DefaultConfig())
	fired := 0
	for i := 0; i < 5000; i++ {
		if _, ok := b.Roll(rng, t0, nil); ok {
			fired++
		}
	}
	assert.InDelta(t, 0.3, float64(fired)/5000, 0.03)
}
