package plate

import (
	"fmt"
)

// Tier roll thresholds: a roll strictly above the threshold selects the tier.
const (
	HistoricThreshold = 0.98
	EliteThreshold    = 0.90
	NiceThreshold     = 0.70
)

// PriceRange is a half-open [Low, High) base price interval.
type PriceRange struct {
	Low  int64
	High int64
}

// Contains reports whether v lies in the range.
func (r PriceRange) Contains(v int64) bool {
	return v >= r.Low && v < r.High
}

// BasePrices holds the base price interval of every tier.
var BasePrices = map[Rarity]PriceRange{
	Ordinary: {Low: 10_000, High: 30_000},
	Nice:     {Low: 50_000, High: 150_000},
	Elite:    {Low: 500_000, High: 3_000_000},
	Historic: {Low: 200_000, High: 1_000_000},
}

// RollRarity maps a uniform draw in [0,1) to a tier.
func RollRarity(r float64) Rarity {
	switch {
	case r > HistoricThreshold:
		return Historic
	case r > EliteThreshold:
		return Elite
	case r > NiceThreshold:
		return Nice
	default:
		return Ordinary
	}
}

// Generator produces plates of all four tiers.
type Generator struct {
	rng    Rand
	nextID func() string
}

// NewGenerator creates a Generator drawing from rng.
func NewGenerator(rng Rand) *Generator {
	return &Generator{rng: rng, nextID: NextID}
}

// Generate rolls a tier and produces a plate of it.
func (g *Generator) Generate() Plate {
	return g.GenerateRarity(RollRarity(g.rng.Float64()))
}

// GenerateRarity produces a plate of the given tier without rolling.
// An unknown tier falls back to ordinary.
func (g *Generator) GenerateRarity(r Rarity) Plate {
	var p Plate
	switch r {
	case Historic:
		p = g.historic()
	case Elite:
		p = g.elite()
	case Nice:
		p = g.nice()
	default:
		p = g.ordinary()
	}
	p.BasePrice = g.basePrice(p.Rarity)
	p.ID = g.nextID()
	return p
}

func (g *Generator) basePrice(r Rarity) int64 {
	pr := BasePrices[r]
	return pr.Low + int64(g.rng.Intn(int(pr.High-pr.Low)))
}

func (g *Generator) ordinary() Plate {
	l1, l2, l3 := pick(g.rng, Letters), pick(g.rng, Letters), pick(g.rng, Letters)
	return Plate{
		Number: l1 + digits(g.rng, 3) + l2 + l3,
		Region: pick(g.rng, Regions),
		Rarity: Ordinary,
	}
}

func (g *Generator) nice() Plate {
	var number string
	if g.rng.Intn(2) == 0 {
		d := fmt.Sprint(g.rng.Intn(10))
		l1, l2, l3 := pick(g.rng, Letters), pick(g.rng, Letters), pick(g.rng, Letters)
		number = l1 + d + d + d + l2 + l3
	} else {
		l := pick(g.rng, Letters)
		number = l + digits(g.rng, 3) + l + l
	}
	return Plate{
		Number: number,
		Region: pick(g.rng, Regions),
		Rarity: Nice,
	}
}

func (g *Generator) elite() Plate {
	var number string
	if g.rng.Float64() > 0.5 {
		triple := []rune(pick(g.rng, EliteLetters))
		number = string(triple[0]) + digits(g.rng, 3) + string(triple[1:])
	} else {
		num := pick(g.rng, EliteNumbers)
		l1, l2, l3 := pick(g.rng, Letters), pick(g.rng, Letters), pick(g.rng, Letters)
		number = l1 + num + l2 + l3
	}
	return Plate{
		Number: number,
		Region: pick(g.rng, EliteRegions),
		Rarity: Elite,
	}
}

func (g *Generator) historic() Plate {
	var number string
	if g.rng.Intn(2) == 0 {
		number = "СССР " + digits(g.rng, 4)
	} else {
		number = pick(g.rng, Letters) + digits(g.rng, 3) + " РУС"
	}
	return Plate{
		Number: number,
		Region: RegionHistoric,
		Rarity: Historic,
	}
}
