package event

import (
	"time"

	"github.com/kasuganosora/platemarket/game/plate"
	"github.com/kasuganosora/platemarket/game/shop"
)

// Kind identifies a global market event.
type Kind string

const (
	EliteDemand Kind = "elite_demand"
	MarketBoom  Kind = "market_boom"
	FreeBox     Kind = "free_box"
)

// Event is one entry of the event catalog.
type Event struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Catalog lists the events a day advance can fire, drawn uniformly.
var Catalog = []Event{
	{Kind: EliteDemand, Text: "🚨 Новый закон! Спрос на элитные номера вырос!"},
	{Kind: MarketBoom, Text: "📰 Рыночный бум! Цены упали на 20%!"},
	{Kind: FreeBox, Text: "🎉 Везучий день! Следующая коробка ГИБДД бесплатно!"},
}

const (
	eliteDemandFactor = 1.5
	marketBoomFactor  = 0.8
)

// Modifier overrides a value until Expiry. It is evaluated at query time,
// so nothing has to run when it lapses.
type Modifier struct {
	Value  int64
	Expiry time.Time
}

// Active reports whether the override still applies at now.
func (m Modifier) Active(now time.Time) bool {
	return now.Before(m.Expiry)
}

// Resolve returns the override while active, else base.
func (m Modifier) Resolve(now time.Time, base int64) int64 {
	if m.Active(now) {
		return m.Value
	}
	return base
}

// Config holds event tunables.
type Config struct {
	Chance          float64
	BannerDuration  time.Duration
	FreeBoxDuration time.Duration
}

// DefaultConfig returns the stock event tunables.
func DefaultConfig() Config {
	return Config{
		Chance:          0.3,
		BannerDuration:  10 * time.Second,
		FreeBoxDuration: 60 * time.Second,
	}
}

// Board tracks the active banner and the free-box override of one game.
type Board struct {
	cfg          Config
	banner       string
	bannerExpiry time.Time
	boxCost      Modifier
}

// NewBoard creates an empty Board.
func NewBoard(cfg Config) *Board {
	return &Board{cfg: cfg}
}

// Roll fires a random event with the configured chance. It returns the
// fired event and true, or false when nothing happened.
func (b *Board) Roll(rng plate.Rand, now time.Time, market []shop.Listing) (Event, bool) {
	if rng.Float64() <= 1-b.cfg.Chance {
		return Event{}, false
	}
	e := Catalog[rng.Intn(len(Catalog))]
	b.Fire(e, now, market)
	return e, true
}

// Fire applies e: price events rewrite the market listings in place,
// the free-box event zeroes the box cost for a while.
func (b *Board) Fire(e Event, now time.Time, market []shop.Listing) {
	switch e.Kind {
	case EliteDemand:
		for i := range market {
			if market[i].Rarity == plate.Elite {
				market[i].Price = plate.Scale(market[i].Price, eliteDemandFactor)
			}
		}
	case MarketBoom:
		for i := range market {
			market[i].Price = plate.Scale(market[i].Price, marketBoomFactor)
		}
	case FreeBox:
		b.boxCost = Modifier{Value: 0, Expiry: now.Add(b.cfg.FreeBoxDuration)}
	}
	b.banner = e.Text
	b.bannerExpiry = now.Add(b.cfg.BannerDuration)
}

// BoxCost returns the loot box price at now.
func (b *Board) BoxCost(now time.Time, base int64) int64 {
	return b.boxCost.Resolve(now, base)
}

// FreeBoxUntil returns when the free-box override lapses, zero if inactive.
func (b *Board) FreeBoxUntil(now time.Time) time.Time {
	if !b.boxCost.Active(now) {
		return time.Time{}
	}
	return b.boxCost.Expiry
}

// Banner returns the event banner text while it is visible.
func (b *Board) Banner(now time.Time) string {
	if now.Before(b.bannerExpiry) {
		return b.banner
	}
	return ""
}
