package shop

import (
	"fmt"

	"github.com/kasuganosora/platemarket/game/plate"
)

// Listing counts per refresh.
const (
	marketMinCount   = 8
	marketExtraCount = 4 // market holds 8..11 listings
	marketplaceCount = 6
	junkyardCount    = 5
	garageCount      = 3
	blackMarketCount = 4
)

// Factory builds the themed listing collections of every shop.
type Factory struct {
	gen   *plate.Generator
	rng   plate.Rand
	rules Rules
}

// NewFactory creates a Factory that draws plates from gen and prices from rng.
func NewFactory(gen *plate.Generator, rng plate.Rand, rules Rules) *Factory {
	return &Factory{gen: gen, rng: rng, rules: rules}
}

// Refresh produces a fresh listing collection for the given shop.
// reputation gates the garage; other shops ignore it.
func (f *Factory) Refresh(id ID, reputation int) ([]Listing, error) {
	switch id {
	case Market:
		return f.Market(), nil
	case Marketplace:
		return f.Marketplace(), nil
	case Junkyard:
		return f.Junkyard(), nil
	case Garage:
		return f.Garage(reputation)
	case BlackMarket:
		return f.BlackMarket(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShop, id)
	}
}

// Market produces the daily market board.
func (f *Factory) Market() []Listing {
	n := marketMinCount + f.rng.Intn(marketExtraCount)
	out := make([]Listing, 0, n)
	for i := 0; i < n; i++ {
		p := f.gen.Generate()
		out = append(out, Listing{
			Plate:  p,
			Shop:   Market,
			Price:  plate.MarketPrice(f.rng, p.BasePrice, plate.MarketVariation),
			Seller: f.seller(),
		})
	}
	return out
}

// Marketplace produces the classified-ads dialog listings.
func (f *Factory) Marketplace() []Listing {
	out := make([]Listing, 0, marketplaceCount)
	for i := 0; i < marketplaceCount; i++ {
		p := f.gen.Generate()
		out = append(out, Listing{
			Plate:  p,
			Shop:   Marketplace,
			Price:  plate.MarketPrice(f.rng, p.BasePrice, plate.MarketplaceVariation),
			Seller: f.seller(),
		})
	}
	return out
}

// Junkyard produces cheap, worn plates at 40% of the market price.
func (f *Factory) Junkyard() []Listing {
	out := make([]Listing, 0, junkyardCount)
	for i := 0; i < junkyardCount; i++ {
		p := f.gen.Generate()
		market := plate.MarketPrice(f.rng, p.BasePrice, plate.MarketVariation)
		p.Condition = plate.ConditionUsed
		if f.rng.Float64() > 0.7 {
			p.Condition = plate.ConditionWorn
		}
		out = append(out, Listing{
			Plate: p,
			Shop:  Junkyard,
			Price: plate.JunkyardPrice(market),
		})
	}
	return out
}

// Garage produces nice and elite plates for players with enough reputation.
func (f *Factory) Garage(reputation int) ([]Listing, error) {
	if reputation < f.rules.GarageMinReputation {
		return []Listing{}, ErrGateNotMet
	}
	out := make([]Listing, 0, garageCount)
	for i := 0; i < garageCount; i++ {
		r := plate.Nice
		if f.rng.Float64() > 0.5 {
			r = plate.Elite
		}
		p := f.gen.GenerateRarity(r)
		out = append(out, Listing{
			Plate:  p,
			Shop:   Garage,
			Price:  plate.MarketPrice(f.rng, p.BasePrice, plate.GarageVariation),
			Seller: f.seller(),
		})
	}
	return out, nil
}

// BlackMarket produces risky elite and historic plates; 30% are counterfeit.
func (f *Factory) BlackMarket() []Listing {
	out := make([]Listing, 0, blackMarketCount)
	for i := 0; i < blackMarketCount; i++ {
		r := plate.Historic
		if f.rng.Float64() > 0.3 {
			r = plate.Elite
		}
		p := f.gen.GenerateRarity(r)
		price := plate.MarketPrice(f.rng, p.BasePrice, plate.BlackMarketVariation)
		p.Counterfeit = f.rng.Float64() > 0.7
		out = append(out, Listing{
			Plate:  p,
			Shop:   BlackMarket,
			Price:  price,
			Seller: AnonymousSeller,
		})
	}
	return out
}

func (f *Factory) seller() string {
	return Sellers[f.rng.Intn(len(Sellers))]
}

// Find returns the index of the listing with the given plate id, or -1.
func Find(listings []Listing, plateID string) int {
	for i := range listings {
		if listings[i].ID == plateID {
			return i
		}
	}
	return -1
}

// Remove returns listings without the entry at index i.
func Remove(listings []Listing, i int) []Listing {
	out := make([]Listing, 0, len(listings)-1)
	out = append(out, listings[:i]...)
	return append(out, listings[i+1:]...)
}
