package plate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floatRand returns a fixed Float64 and defers Intn to a seeded source.
type floatRand struct {
	f   float64
	rng Rand
}

func (r *floatRand) Float64() float64 { return r.f }
func (r *floatRand) Intn(n int) int   { return r.rng.Intn(n) }

func TestRollRarity_Thresholds(t *testing.T) {
	cases := []struct {
		roll float64
		want Rarity
	}{
		{0, Ordinary},
		{0.5, Ordinary},
		{0.70, Ordinary},
		{0.7000001, Nice},
		{0.90, Nice},
		{0.9000001, Elite},
		{0.98, Elite},
		{0.9800001, Historic},
		{0.999999, Historic},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RollRarity(c.roll), "roll %v", c.roll)
	}
}

func TestGenerate_UsesRoll(t *testing.T) {
	g := NewGenerator(&floatRand{f: 0.99, rng: NewRand(1)})
	p := g.Generate()
	assert.Equal(t, Historic, p.Rarity)
	assert.Equal(t, RegionHistoric, p.Region)
}

func TestGenerateRarity_ForcedWinsOverRoll(t *testing.T) {
	// A roll of 0.99 would select historic; forcing must ignore it.
	g := NewGenerator(&floatRand{f: 0.99, rng: NewRand(2)})
	for _, r := range Rarities {
		assert.Equal(t, r, g.GenerateRarity(r).Rarity)
	}
}

func TestGenerate_BasePriceWithinTierRange(t *testing.T) {
	g := NewGenerator(NewRand(42))
	for i := 0; i < 2000; i++ {
		p := g.Generate()
		pr, ok := BasePrices[p.Rarity]
		require.True(t, ok)
		assert.True(t, pr.Contains(p.BasePrice), "%s base %d outside [%d,%d)", p.Rarity, p.BasePrice, pr.Low, pr.High)
	}
}

func TestGenerate_UniqueIDs(t *testing.T) {
	g := NewGenerator(NewRand(7))
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		p := g.Generate()
		require.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestGenerate_NumberFormats(t *testing.T) {
	g := NewGenerator(NewRand(3))
	for i := 0; i < 200; i++ {
		o := g.GenerateRarity(Ordinary)
		assert.Equal(t, 6, utf8.RuneCountInString(o.Number), o.Number)
		assert.Contains(t, Regions, o.Region)

		n := g.GenerateRarity(Nice)
		assert.Equal(t, 6, utf8.RuneCountInString(n.Number), n.Number)

		e := g.GenerateRarity(Elite)
		assert.Equal(t, 6, utf8.RuneCountInString(e.Number), e.Number)
		assert.Contains(t, EliteRegions, e.Region)

		h := g.GenerateRarity(Historic)
		assert.True(t, strings.HasPrefix(h.Number, "СССР ") || strings.HasSuffix(h.Number, " РУС"), h.Number)
	}
}

func TestNicePlate_HasPattern(t *testing.T) {
	g := NewGenerator(NewRand(11))
	for i := 0; i < 200; i++ {
		runes := []rune(g.GenerateRarity(Nice).Number)
		tripleDigit := runes[1] == runes[2] && runes[2] == runes[3]
		tripleLetter := runes[0] == runes[4] && runes[4] == runes[5]
		assert.True(t, tripleDigit || tripleLetter, string(runes))
	}
}

func TestRarityLabels(t *testing.T) {
	assert.Equal(t, "Элитный", Elite.Label())
	assert.Equal(t, "bogus", Rarity("bogus").Label())
	assert.False(t, Rarity("bogus").Valid())
	assert.True(t, Historic.Rare())
	assert.False(t, Nice.Rare())
}

func TestCostBasis(t *testing.T) {
	p := Plate{BasePrice: 100}
	assert.Equal(t, int64(100), p.CostBasis())
	assert.Equal(t, int64(80), p.WithPurchasePrice(80).CostBasis())
	assert.Nil(t, p.PurchasePrice, "WithPurchasePrice must not mutate the receiver")
}
