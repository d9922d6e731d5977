package plate

import "math"

// Price variations per pricing context.
const (
	DefaultVariation     = 0.2
	MarketVariation      = 0.2
	MarketplaceVariation = 0.3
	SellVariation        = 0.3
	GarageVariation      = 0.2
	BlackMarketVariation = 0.5

	// JunkyardDiscount is applied on top of the market price.
	JunkyardDiscount = 0.4
)

// Multiplier draws a price multiplier uniformly from
// [1-variation, 1+variation).
func Multiplier(rng Rand, variation float64) float64 {
	return 1 + (rng.Float64()*variation*2 - variation)
}

// Scale returns floor(price * factor).
func Scale(price int64, factor float64) int64 {
	return int64(math.Floor(float64(price) * factor))
}

// MarketPrice computes floor(basePrice * (1 + uniform(-variation, +variation))).
func MarketPrice(rng Rand, basePrice int64, variation float64) int64 {
	return Scale(basePrice, Multiplier(rng, variation))
}

// JunkyardPrice discounts an already computed market price.
func JunkyardPrice(marketPrice int64) int64 {
	return Scale(marketPrice, JunkyardDiscount)
}
