package session

import (
	"time"

	"github.com/kasuganosora/platemarket/game/auction"
	"github.com/kasuganosora/platemarket/game/plate"
	"github.com/kasuganosora/platemarket/game/quest"
	"github.com/kasuganosora/platemarket/game/shop"
)

// InventoryItem is an owned plate with its display extras.
type InventoryItem struct {
	plate.Plate
	RarityLabel string `json:"rarity_label"`
	Potential   int64  `json:"potential"`
}

// Snapshot is a read-only copy of a game for the presentation layer.
type Snapshot struct {
	SessionID        string                     `json:"session_id"`
	Money            int64                      `json:"money"`
	Reputation       int                        `json:"reputation"`
	Day              int                        `json:"day"`
	Inventory        []InventoryItem            `json:"inventory"`
	Showcase         []plate.Plate              `json:"showcase"`
	ShowcaseCapacity int                        `json:"showcase_capacity"`
	Listings         map[shop.ID][]shop.Listing `json:"listings"`
	Auctions         []auction.Auction          `json:"auctions"`
	Quests           []quest.Quest              `json:"quests"`
	Jobs             []Job                      `json:"jobs"`
	BoxCost          int64                      `json:"box_cost"`
	FreeBoxUntil     *time.Time                 `json:"free_box_until,omitempty"`
	Banner           string                     `json:"banner,omitempty"`
	Headline         string                     `json:"headline,omitempty"`
	ProfitableSales  int                        `json:"profitable_sales"`
}

// Snapshot copies the current state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	s := g.state
	snap := Snapshot{
		SessionID:        g.ID,
		Money:            s.Money,
		Reputation:       s.Reputation,
		Day:              s.Day,
		Inventory:        make([]InventoryItem, 0, len(s.Inventory)),
		Showcase:         append([]plate.Plate{}, s.Showcase...),
		ShowcaseCapacity: g.cfg.Economy.ShowcaseCapacity,
		Listings:         make(map[shop.ID][]shop.Listing, len(s.Listings)),
		Auctions:         make([]auction.Auction, 0, len(s.Auctions.Auctions)),
		Quests:           g.quests.List(),
		Jobs:             []Job{Jobs["mechanic"], Jobs["valet"], Jobs["transporter"]},
		BoxCost:          g.events.BoxCost(now, g.cfg.LootBoxCost),
		Banner:           g.events.Banner(now),
		Headline:         g.headline,
		ProfitableSales:  s.ProfitableSales,
	}
	for _, p := range s.Inventory {
		snap.Inventory = append(snap.Inventory, InventoryItem{
			Plate:       p,
			RarityLabel: p.Rarity.Label(),
			Potential:   p.BasePrice - p.CostBasis(),
		})
	}
	for id, ls := range s.Listings {
		snap.Listings[id] = cloneListings(ls)
	}
	for _, a := range s.Auctions.Auctions {
		snap.Auctions = append(snap.Auctions, *a)
	}
	if until := g.events.FreeBoxUntil(now); !until.IsZero() {
		snap.FreeBoxUntil = &until
	}
	return snap
}
