package economy

import (
	"errors"

	"github.com/kasuganosora/platemarket/game/auction"
	"github.com/kasuganosora/platemarket/game/plate"
	"github.com/kasuganosora/platemarket/game/shop"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCollectionFull    = errors.New("collection is full")
	ErrPlateNotFound     = errors.New("plate not found")
	ErrAuctionNotFound   = errors.New("auction not found")

	ErrInvalidBid = auction.ErrInvalidBid
	ErrGateNotMet = shop.ErrGateNotMet
)

// Reputation deltas.
const (
	RareBuyReputation    = 5
	ShowcaseReputation   = 5
	RareRevealReputation = 3
	ConfiscationPenalty  = 10
)

// Config holds the economy tunables.
type Config struct {
	StartMoney       int64
	ShowcaseCapacity int
	AuctionPoolSize  int
	Shop             shop.Rules
}

// DefaultConfig returns the stock economy.
func DefaultConfig() Config {
	return Config{
		StartMoney:       50_000,
		ShowcaseCapacity: 6,
		AuctionPoolSize:  3,
		Shop:             shop.DefaultRules(),
	}
}

// State is one player's economy. It is not safe for concurrent use;
// the owning controller serialises access.
type State struct {
	Money           int64
	Reputation      int
	Day             int
	Inventory       []plate.Plate
	Showcase        []plate.Plate
	Listings        map[shop.ID][]shop.Listing
	Auctions        *auction.Pool
	ProfitableSales int

	cfg     Config
	rng     plate.Rand
	gen     *plate.Generator
	factory *shop.Factory
}

// New creates a fresh economy on day 1 with a market board and a full
// auction pool.
func New(cfg Config, rng plate.Rand) *State {
	gen := plate.NewGenerator(rng)
	s := &State{
		Money:     cfg.StartMoney,
		Day:       1,
		Inventory: []plate.Plate{},
		Showcase:  []plate.Plate{},
		Listings:  make(map[shop.ID][]shop.Listing),
		cfg:       cfg,
		rng:       rng,
		gen:       gen,
		factory:   shop.NewFactory(gen, rng, cfg.Shop),
	}
	s.Listings[shop.Market] = s.factory.Market()
	s.Auctions = auction.NewPool(cfg.AuctionPoolSize, gen, rng)
	return s
}

// Config returns the tunables the state was created with.
func (s *State) Config() Config { return s.cfg }

// Generator exposes the plate generator shared with the listing factories.
func (s *State) Generator() *plate.Generator { return s.gen }

// Refresh regenerates the listings of one shop. A garage refresh below the
// reputation threshold empties the garage and returns ErrGateNotMet.
func (s *State) Refresh(id shop.ID) ([]shop.Listing, error) {
	ls, err := s.factory.Refresh(id, s.Reputation)
	if err != nil && !errors.Is(err, shop.ErrGateNotMet) {
		return nil, err
	}
	s.Listings[id] = ls
	return ls, err
}

// Listing looks up a plate currently offered by a shop.
func (s *State) Listing(id shop.ID, plateID string) (shop.Listing, error) {
	i := shop.Find(s.Listings[id], plateID)
	if i < 0 {
		return shop.Listing{}, ErrPlateNotFound
	}
	return s.Listings[id][i], nil
}

// Buy purchases a listed plate. On any error the state is unchanged.
func (s *State) Buy(id shop.ID, plateID string) (plate.Plate, error) {
	ls := s.Listings[id]
	i := shop.Find(ls, plateID)
	if i < 0 {
		return plate.Plate{}, ErrPlateNotFound
	}
	l := ls[i]
	if s.Money < l.Price {
		return plate.Plate{}, ErrInsufficientFunds
	}
	s.Money -= l.Price
	p := l.Plate.WithPurchasePrice(l.Price)
	s.Inventory = append(s.Inventory, p)
	s.Listings[id] = shop.Remove(ls, i)
	if p.Rarity.Rare() {
		s.Reputation += RareBuyReputation
	}
	return p, nil
}

// Confiscate applies the counterfeit penalty: the listed price is lost,
// no plate is received and reputation drops. Money may go negative.
func (s *State) Confiscate(id shop.ID, plateID string) (shop.Listing, error) {
	ls := s.Listings[id]
	i := shop.Find(ls, plateID)
	if i < 0 {
		return shop.Listing{}, ErrPlateNotFound
	}
	l := ls[i]
	s.Money -= l.Price
	s.Reputation -= ConfiscationPenalty
	s.Listings[id] = shop.Remove(ls, i)
	return l, nil
}

// Sell sells an inventory plate at a randomised price around its base price.
func (s *State) Sell(plateID string) (plate.Plate, int64, error) {
	i := s.inventoryIndex(plateID)
	if i < 0 {
		return plate.Plate{}, 0, ErrPlateNotFound
	}
	p := s.Inventory[i]
	price := plate.MarketPrice(s.rng, p.BasePrice, plate.SellVariation)
	s.Money += price
	s.Inventory = removePlate(s.Inventory, i)
	if p.PurchasePrice != nil && price > *p.PurchasePrice {
		s.ProfitableSales++
	}
	return p, price, nil
}

// AddToCollection moves an inventory plate to the showcase.
func (s *State) AddToCollection(plateID string) (plate.Plate, error) {
	i := s.inventoryIndex(plateID)
	if i < 0 {
		return plate.Plate{}, ErrPlateNotFound
	}
	if len(s.Showcase) >= s.cfg.ShowcaseCapacity {
		return plate.Plate{}, ErrCollectionFull
	}
	p := s.Inventory[i]
	s.Showcase = append(s.Showcase, p)
	s.Inventory = removePlate(s.Inventory, i)
	s.Reputation += ShowcaseReputation
	return p, nil
}

// PayLootBox debits the box cost.
func (s *State) PayLootBox(cost int64) error {
	if s.Money < cost {
		return ErrInsufficientFunds
	}
	s.Money -= cost
	return nil
}

// RevealLootBox draws a plate into the inventory without a purchase price.
func (s *State) RevealLootBox() plate.Plate {
	p := s.gen.Generate()
	s.Inventory = append(s.Inventory, p)
	if p.Rarity.Rare() {
		s.Reputation += RareRevealReputation
	}
	return p
}

// PlaceBid bids on the auction at index. Funds are checked, not escrowed.
func (s *State) PlaceBid(index int, amount int64) (*auction.Auction, error) {
	a := s.Auctions.Get(index)
	if a == nil {
		return nil, ErrAuctionNotFound
	}
	if err := a.CheckBid(amount); err != nil {
		return nil, err
	}
	if amount > s.Money {
		return nil, ErrInsufficientFunds
	}
	a.Accept(amount)
	return a, nil
}

// Credit adds a reward.
func (s *State) Credit(money int64, reputation int) {
	s.Money += money
	s.Reputation += reputation
}

// PassDay moves the calendar one day on and touches nothing else. A work
// shift uses it.
func (s *State) PassDay() int {
	s.Day++
	return s.Day
}

// NextDay advances the calendar: new market board, auctions aged and the
// pool topped up. It returns the auctions that expired.
func (s *State) NextDay() []*auction.Auction {
	s.Day++
	s.Listings[shop.Market] = s.factory.Market()
	expired := s.Auctions.Age()
	s.Auctions.Replenish(s.gen, s.rng)
	return expired
}

// CountRarity counts inventory plates of tier r.
func (s *State) CountRarity(r plate.Rarity) int {
	n := 0
	for _, p := range s.Inventory {
		if p.Rarity == r {
			n++
		}
	}
	return n
}

// FindInventory returns the inventory plate with id.
func (s *State) FindInventory(plateID string) (plate.Plate, bool) {
	i := s.inventoryIndex(plateID)
	if i < 0 {
		return plate.Plate{}, false
	}
	return s.Inventory[i], true
}

func (s *State) inventoryIndex(plateID string) int {
	for i := range s.Inventory {
		if s.Inventory[i].ID == plateID {
			return i
		}
	}
	return -1
}

func removePlate(ps []plate.Plate, i int) []plate.Plate {
	out := make([]plate.Plate, 0, len(ps)-1)
	out = append(out, ps[:i]...)
	return append(out, ps[i+1:]...)
}
