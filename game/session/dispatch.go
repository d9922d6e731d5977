package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kasuganosora/platemarket/game/auction"
	"github.com/kasuganosora/platemarket/game/shop"
)

// ErrUnknownAction is returned for a command with no registered handler.
var ErrUnknownAction = errors.New("unknown action")

// Command actions.
const (
	ActionOpenShop   = "open_shop"
	ActionBuy        = "buy"
	ActionSell       = "sell"
	ActionShowcase   = "showcase"
	ActionLootBox    = "loot_box"
	ActionBid        = "bid"
	ActionCheckQuest = "check_quest"
	ActionAdvanceDay = "advance_day"
	ActionWork       = "work"
	ActionSnapshot   = "snapshot"
)

// Command is a presentation-layer request. Only the fields its action
// needs are read.
type Command struct {
	Action  string `json:"action"`
	Shop    string `json:"shop,omitempty"`
	PlateID string `json:"plate_id,omitempty"`
	Index   int    `json:"index,omitempty"`
	Amount  Amount `json:"amount,omitempty"`
	QuestID int    `json:"quest_id,omitempty"`
	JobID   string `json:"job_id,omitempty"`
}

// Amount is a bid as a client sent it. It decodes from a JSON string or
// number; any other value keeps its raw text and fails bid parsing.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Amount(s)
		return nil
	}
	*a = Amount(b)
	return nil
}

// CommandFunc runs one command against a game.
type CommandFunc func(ctx context.Context, g *Game, cmd Command) (interface{}, error)

var commands = map[string]CommandFunc{
	ActionOpenShop: func(ctx context.Context, g *Game, cmd Command) (interface{}, error) {
		id, err := shop.Parse(cmd.Shop)
		if err != nil {
			return nil, err
		}
		return g.OpenShop(ctx, id)
	},
	ActionBuy: func(ctx context.Context, g *Game, cmd Command) (interface{}, error) {
		id, err := shop.Parse(cmd.Shop)
		if err != nil {
			return nil, err
		}
		return g.BuyFromShop(ctx, id, cmd.PlateID)
	},
	ActionSell: func(ctx context.Context, g *Game, cmd Command) (interface{}, error) {
		return g.SellFromInventory(ctx, cmd.PlateID)
	},
	ActionShowcase: func(ctx context.Context, g *Game, cmd Command) (interface{}, error) {
		return g.AddToShowcase(ctx, cmd.PlateID)
	},
	ActionLootBox: func(ctx context.Context, g *Game, _ Command) (interface{}, error) {
		return g.OpenLootBox(ctx)
	},
	ActionBid: func(ctx context.Context, g *Game, cmd Command) (interface{}, error) {
		amount, err := auction.ParseBid(string(cmd.Amount))
		if err != nil {
			g.mu.Lock()
			err = g.fail(ctx, "bid", "", err)
			g.mu.Unlock()
			return nil, err
		}
		return g.PlaceBid(ctx, cmd.Index, amount)
	},
	ActionCheckQuest: func(ctx context.Context, g *Game, cmd Command) (interface{}, error) {
		st, err := g.CheckQuest(ctx, cmd.QuestID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"quest_id": cmd.QuestID, "status": st.String()}, nil
	},
	ActionAdvanceDay: func(ctx context.Context, g *Game, _ Command) (interface{}, error) {
		return g.AdvanceDay(ctx), nil
	},
	ActionWork: func(ctx context.Context, g *Game, cmd Command) (interface{}, error) {
		return g.DoWork(ctx, cmd.JobID)
	},
	ActionSnapshot: func(_ context.Context, g *Game, _ Command) (interface{}, error) {
		return g.Snapshot(), nil
	},
}

// Actions lists every registered action name in sorted order.
func Actions() []string {
	out := make([]string, 0, len(commands))
	for a := range commands {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Dispatch routes cmd to the operation named by its action.
func (g *Game) Dispatch(ctx context.Context, cmd Command) (interface{}, error) {
	fn, ok := commands[cmd.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return fn(ctx, g, cmd)
}
