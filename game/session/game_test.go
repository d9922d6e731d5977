package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kasuganosora/platemarket/game/auction"
	"github.com/kasuganosora/platemarket/game/economy"
	"github.com/kasuganosora/platemarket/game/event"
	"github.com/kasuganosora/platemarket/game/plate"
	"github.com/kasuganosora/platemarket/game/quest"
	"github.com/kasuganosora/platemarket/game/shop"
	"github.com/kasuganosora/platemarket/plugin/hook"
	"github.com/kasuganosora/platemarket/scheduler"
	"github.com/kasuganosora/platemarket/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu  sync.Mutex
	out []Notification
}

func (r *recorder) Notify(_ context.Context, _ string, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, n)
	return nil
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.out) == 0 {
		return Notification{}
	}
	return r.out[len(r.out)-1]
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.out))
	for i, n := range r.out {
		out[i] = n.Message
	}
	return out
}

type fixture struct {
	g     *Game
	rng   *testutil.ScriptedRand
	notes *recorder
	hooks *hook.HookCenter
	clock time.Time
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LootBoxDelay = 10 * time.Millisecond
	cfg.NewsInterval = 0
	for _, m := range mutate {
		m(&cfg)
	}
	f := &fixture{
		rng:   testutil.NewScriptedRand(1),
		notes: &recorder{},
		hooks: hook.NewHookCenter(),
		clock: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)
	f.g = New(context.Background(), "sess-1", cfg, Deps{
		Scheduler: sched,
		Notifier:  f.notes,
		Hooks:     f.hooks,
		Logger:    zap.NewNop(),
		Rand:      f.rng,
		Now:       func() time.Time { return f.clock },
	})
	return f
}

func (f *fixture) list(id shop.ID, p plate.Plate, price int64) {
	f.g.state.Listings[id] = append(f.g.state.Listings[id], shop.Listing{Plate: p, Shop: id, Price: price})
}

func TestNew_Welcome(t *testing.T) {
	f := newFixture(t)
	snap := f.g.Snapshot()
	assert.Equal(t, int64(50_000), snap.Money)
	assert.Equal(t, 1, snap.Day)
	assert.Len(t, snap.Auctions, 3)
	assert.Len(t, snap.Quests, 3)
	assert.Equal(t, int64(5000), snap.BoxCost)
	assert.Contains(t, f.notes.messages(), "Добро пожаловать на рынок автономеров!")
}

func TestBuyFromShop_Success(t *testing.T) {
	f := newFixture(t)
	p := f.g.state.Generator().GenerateRarity(plate.Ordinary)
	f.list(shop.Junkyard, p, 4000)

	res, err := f.g.BuyFromShop(context.Background(), shop.Junkyard, p.ID)
	require.NoError(t, err)
	assert.False(t, res.Confiscated)
	assert.Equal(t, int64(4000), res.Price)

	snap := f.g.Snapshot()
	assert.Equal(t, int64(46_000), snap.Money)
	require.Len(t, snap.Inventory, 1)
	assert.Equal(t, p.ID, snap.Inventory[0].ID)
	assert.Equal(t, SeveritySuccess, f.notes.last().Severity)
}

func TestBuyFromShop_InsufficientFundsNotifies(t *testing.T) {
	f := newFixture(t)
	p := f.g.state.Generator().GenerateRarity(plate.Elite)
	f.list(shop.Garage, p, 900_000)

	_, err := f.g.BuyFromShop(context.Background(), shop.Garage, p.ID)
	assert.True(t, errors.Is(err, economy.ErrInsufficientFunds))
	assert.Equal(t, SeverityError, f.notes.last().Severity)
	assert.Equal(t, "Недостаточно денег!", f.notes.last().Message)
	assert.Equal(t, int64(50_000), f.g.Snapshot().Money)
}

func TestBuyFromShop_CounterfeitConfiscated(t *testing.T) {
	f := newFixture(t)
	p := f.g.state.Generator().GenerateRarity(plate.Historic)
	p.Counterfeit = true
	f.list(shop.BlackMarket, p, 70_000)

	f.rng.Push(0.9)
	res, err := f.g.BuyFromShop(context.Background(), shop.BlackMarket, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Confiscated)

	snap := f.g.Snapshot()
	assert.Equal(t, int64(-20_000), snap.Money)
	assert.Equal(t, -10, snap.Reputation)
	assert.Empty(t, snap.Inventory)
	assert.Equal(t, SeverityError, f.notes.last().Severity)
}

func TestBuyFromShop_CounterfeitSlipsThrough(t *testing.T) {
	f := newFixture(t)
	f.g.state.Money = 5_000_000
	p := f.g.state.Generator().GenerateRarity(plate.Elite)
	p.Counterfeit = true
	f.list(shop.BlackMarket, p, 700_000)

	f.rng.Push(0.2)
	res, err := f.g.BuyFromShop(context.Background(), shop.BlackMarket, p.ID)
	require.NoError(t, err)
	assert.False(t, res.Confiscated)
	assert.Equal(t, 5, f.g.Snapshot().Reputation)
}

func TestBuyFromShop_HookVeto(t *testing.T) {
	f := newFixture(t)
	f.hooks.Register(hook.BeforePurchase, 0, "veto", func(_ context.Context, _ hook.Event, data any) (any, error) {
		return data, hook.ErrInterrupt
	})
	p := f.g.state.Generator().GenerateRarity(plate.Ordinary)
	f.list(shop.Junkyard, p, 10)

	_, err := f.g.BuyFromShop(context.Background(), shop.Junkyard, p.ID)
	assert.True(t, errors.Is(err, ErrPurchaseBlocked))
	assert.Equal(t, int64(50_000), f.g.Snapshot().Money)
}

func TestOpenShop_GarageGate(t *testing.T) {
	f := newFixture(t)
	ls, err := f.g.OpenShop(context.Background(), shop.Garage)
	assert.True(t, errors.Is(err, economy.ErrGateNotMet))
	assert.Empty(t, ls)
	assert.Contains(t, f.notes.last().Message, "10+")

	f.g.state.Reputation = 10
	ls, err = f.g.OpenShop(context.Background(), shop.Garage)
	require.NoError(t, err)
	assert.Len(t, ls, 3)
}

func TestOpenShop_MarketKeepsBoard(t *testing.T) {
	f := newFixture(t)
	a, err := f.g.OpenShop(context.Background(), shop.Market)
	require.NoError(t, err)
	b, err := f.g.OpenShop(context.Background(), shop.Market)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSellAndShowcase(t *testing.T) {
	f := newFixture(t)
	gen := f.g.state.Generator()
	for i := 0; i < 8; i++ {
		f.g.state.Inventory = append(f.g.state.Inventory, gen.GenerateRarity(plate.Ordinary))
	}
	ctx := context.Background()

	sale, err := f.g.SellFromInventory(ctx, f.g.state.Inventory[0].ID)
	require.NoError(t, err)
	assert.Positive(t, sale.Price)

	for i := 0; i < 6; i++ {
		_, err := f.g.AddToShowcase(ctx, f.g.state.Inventory[0].ID)
		require.NoError(t, err)
	}
	_, err = f.g.AddToShowcase(ctx, f.g.state.Inventory[0].ID)
	assert.True(t, errors.Is(err, economy.ErrCollectionFull))
	assert.Equal(t, SeverityWarning, f.notes.last().Severity)

	snap := f.g.Snapshot()
	assert.Len(t, snap.Showcase, 6)
	assert.Len(t, snap.Inventory, 1)
	assert.Equal(t, 30, snap.Reputation)
}

func TestOpenLootBox_DelayedReveal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t1, err := f.g.OpenLootBox(ctx)
	require.NoError(t, err)
	_, err = f.g.OpenLootBox(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), t1.Cost)
	assert.Equal(t, int64(40_000), f.g.Snapshot().Money)

	// both boxes reveal; the second never cancels the first
	require.Eventually(t, func() bool {
		return len(f.g.Snapshot().Inventory) == 2
	}, time.Second, 5*time.Millisecond)
	for _, it := range f.g.Snapshot().Inventory {
		assert.Nil(t, it.PurchasePrice)
		assert.Equal(t, int64(0), it.Potential)
	}
}

func TestOpenLootBox_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.g.state.Money = 100
	_, err := f.g.OpenLootBox(context.Background())
	assert.True(t, errors.Is(err, economy.ErrInsufficientFunds))
	assert.Equal(t, int64(100), f.g.Snapshot().Money)
}

func TestOpenLootBox_FreeWhileEventActive(t *testing.T) {
	f := newFixture(t)
	f.g.events.Fire(event.Catalog[2], f.clock, nil)

	ticket, err := f.g.OpenLootBox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), ticket.Cost)
	assert.NotNil(t, f.g.Snapshot().FreeBoxUntil)

	f.clock = f.clock.Add(61 * time.Second)
	ticket, err = f.g.OpenLootBox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), ticket.Cost)
	assert.Nil(t, f.g.Snapshot().FreeBoxUntil)
}

func TestPlaceBid(t *testing.T) {
	f := newFixture(t)
	f.g.state.Money = 10_000_000
	ctx := context.Background()
	a := f.g.state.Auctions.Get(0)
	bid, bidders := a.CurrentBid, a.Bidders

	_, err := f.g.PlaceBid(ctx, 0, bid)
	assert.True(t, errors.Is(err, economy.ErrInvalidBid))

	got, err := f.g.PlaceBid(ctx, 0, bid+1)
	require.NoError(t, err)
	assert.Equal(t, bid+1, got.CurrentBid)
	assert.Equal(t, bidders+1, got.Bidders)
}

func TestCheckQuest_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.g.state.ProfitableSales = 1
	ctx := context.Background()

	st, err := f.g.CheckQuest(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, quest.StatusGranted, st)
	money := f.g.Snapshot().Money

	st, err = f.g.CheckQuest(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, quest.StatusAlreadyCompleted, st)
	assert.Equal(t, money, f.g.Snapshot().Money)

	_, err = f.g.CheckQuest(ctx, 42)
	assert.True(t, errors.Is(err, quest.ErrUnknownQuest))
}

func TestAdvanceDay_AgesAuctions(t *testing.T) {
	f := newFixture(t)
	gen := f.g.state.Generator()
	f.g.state.Auctions.Auctions = []*auction.Auction{
		{Plate: gen.GenerateRarity(plate.Nice), TimeLeft: 1},
		{Plate: gen.GenerateRarity(plate.Nice), TimeLeft: 4},
	}

	rep := f.g.AdvanceDay(context.Background())
	assert.Equal(t, 2, rep.Day)
	assert.Len(t, rep.Expired, 1)

	snap := f.g.Snapshot()
	assert.Len(t, snap.Auctions, 3)
	assert.Equal(t, 3, snap.Auctions[0].TimeLeft)
	assert.Contains(t, f.notes.messages(), "День 2. Новые объявления на рынке!")
}

func TestAdvanceDay_EventBanner(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Events.Chance = 1 })
	rep := f.g.AdvanceDay(context.Background())
	require.NotNil(t, rep.Event)
	assert.Equal(t, rep.Event.Text, f.g.Snapshot().Banner)

	f.clock = f.clock.Add(11 * time.Second)
	assert.Empty(t, f.g.Snapshot().Banner)
}

func TestDoWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	market := append([]shop.Listing(nil), f.g.state.Listings[shop.Market]...)
	left := map[string]int{}
	for _, a := range f.g.state.Auctions.Auctions {
		left[a.Plate.ID] = a.TimeLeft
	}
	banner := f.g.events.Banner(f.clock)

	res, err := f.g.DoWork(ctx, "mechanic")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), res.Earned)
	assert.Equal(t, 2, res.Day)
	assert.Equal(t, 2, f.g.state.Day)

	// a shift leaves the market, auctions and events alone
	assert.Equal(t, market, f.g.state.Listings[shop.Market])
	require.Len(t, f.g.state.Auctions.Auctions, len(left))
	for _, a := range f.g.state.Auctions.Auctions {
		assert.Equal(t, left[a.Plate.ID], a.TimeLeft, a.Plate.ID)
	}
	assert.Equal(t, banner, f.g.events.Banner(f.clock))

	f.rng.Push(0.95)
	res, err = f.g.DoWork(ctx, "transporter")
	require.NoError(t, err)
	assert.True(t, res.Fined)
	assert.Equal(t, int64(2000), res.Earned)
	assert.Equal(t, 3, res.Day)

	f.rng.Push(0.1)
	res, err = f.g.DoWork(ctx, "transporter")
	require.NoError(t, err)
	assert.False(t, res.Fined)
	assert.Equal(t, int64(3000), res.Earned)

	_, err = f.g.DoWork(ctx, "astronaut")
	assert.True(t, errors.Is(err, ErrUnknownJob))
}

func TestAfterCommandHook(t *testing.T) {
	f := newFixture(t)
	var got []*CommandRecord
	f.hooks.Register(hook.AfterCommand, 0, "test", func(_ context.Context, _ hook.Event, data any) (any, error) {
		got = append(got, data.(*CommandRecord))
		return data, nil
	})
	ctx := WithTraceID(context.Background(), "trace-9")
	_, _ = f.g.SellFromInventory(ctx, "missing")

	require.Len(t, got, 1)
	assert.Equal(t, "sell", got[0].Action)
	assert.Equal(t, "trace-9", got[0].TraceID)
	assert.Equal(t, "sess-1", got[0].SessionID)
	assert.NotEmpty(t, got[0].Error)
	assert.Nil(t, got[0].Detail)

	_, err := f.g.DoWork(ctx, "valet")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "work", got[1].Action)
	assert.Equal(t, map[string]any{"job": "valet", "fined": false}, got[1].Detail)

	f.g.AdvanceDay(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, "advance_day", got[2].Action)
	assert.Contains(t, got[2].Detail, "expired_auctions")
}

func TestNewsTicker(t *testing.T) {
	f := newFixture(t)
	f.g.rotateNews()
	f.g.rotateNews()
	assert.Equal(t, Headlines[1], f.g.Snapshot().Headline)
	assert.Equal(t, SeverityInfo, f.notes.last().Severity)
}
