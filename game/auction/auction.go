package auction

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kasuganosora/platemarket/game/plate"
)

// ErrInvalidBid is returned for non-numeric, non-positive or non-improving bids.
var ErrInvalidBid = errors.New("invalid bid")

const (
	minDays     = 5
	extraDays   = 10 // time left is 5..14 days
	maxBidders  = 5  // 0..4 initial bidders
	eliteChance = 0.6
)

// Auction is a plate under the hammer.
type Auction struct {
	Plate      plate.Plate `json:"plate"`
	CurrentBid int64       `json:"current_bid"`
	TimeLeft   int         `json:"time_left"`
	Bidders    int         `json:"bidders"`
}

// Generate opens a new auction. The opening bid is the plate's base price.
func Generate(gen *plate.Generator, rng plate.Rand) *Auction {
	r := plate.Nice
	if rng.Float64() > eliteChance {
		r = plate.Elite
	}
	p := gen.GenerateRarity(r)
	return &Auction{
		Plate:      p,
		CurrentBid: p.BasePrice,
		TimeLeft:   minDays + rng.Intn(extraDays),
		Bidders:    rng.Intn(maxBidders),
	}
}

// ParseBid converts user input into a bid amount.
func ParseBid(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidBid
	}
	return v, nil
}

// CheckBid validates amount against the current bid without changing anything.
func (a *Auction) CheckBid(amount int64) error {
	if amount <= 0 || amount <= a.CurrentBid {
		return ErrInvalidBid
	}
	return nil
}

// Accept records a validated bid.
func (a *Auction) Accept(amount int64) {
	a.CurrentBid = amount
	a.Bidders++
}

// Pool is the rolling set of running auctions.
type Pool struct {
	Size     int
	Auctions []*Auction
}

// NewPool creates a pool filled up to size.
func NewPool(size int, gen *plate.Generator, rng plate.Rand) *Pool {
	p := &Pool{Size: size}
	p.Replenish(gen, rng)
	return p
}

// Get returns the auction at index i, or nil when out of range.
func (p *Pool) Get(i int) *Auction {
	if i < 0 || i >= len(p.Auctions) {
		return nil
	}
	return p.Auctions[i]
}

// Age decrements every auction's time left and drops the ones that reach
// zero. The expired auctions are returned in pool order.
func (p *Pool) Age() []*Auction {
	var expired []*Auction
	kept := p.Auctions[:0]
	for _, a := range p.Auctions {
		a.TimeLeft--
		if a.TimeLeft <= 0 {
			expired = append(expired, a)
			continue
		}
		kept = append(kept, a)
	}
	clear(p.Auctions[len(kept):])
	p.Auctions = kept
	return expired
}

// Replenish tops the pool back up to its size and returns how many were added.
func (p *Pool) Replenish(gen *plate.Generator, rng plate.Rand) int {
	added := 0
	for len(p.Auctions) < p.Size {
		p.Auctions = append(p.Auctions, Generate(gen, rng))
		added++
	}
	return added
}
