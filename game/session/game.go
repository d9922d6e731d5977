package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/platemarket/game/auction"
	"github.com/kasuganosora/platemarket/game/economy"
	"github.com/kasuganosora/platemarket/game/event"
	"github.com/kasuganosora/platemarket/game/plate"
	"github.com/kasuganosora/platemarket/game/quest"
	"github.com/kasuganosora/platemarket/game/shop"
	"github.com/kasuganosora/platemarket/plugin/hook"
	"github.com/kasuganosora/platemarket/scheduler"
	"go.uber.org/zap"
)

// ErrPurchaseBlocked is returned when a before_purchase hook vetoes a buy.
var ErrPurchaseBlocked = errors.New("purchase blocked")

const confiscationChance = 0.5

// Config holds the controller tunables.
type Config struct {
	Economy      economy.Config
	Events       event.Config
	LootBoxCost  int64
	LootBoxDelay time.Duration
	NewsInterval time.Duration
}

// DefaultConfig returns the stock game.
func DefaultConfig() Config {
	return Config{
		Economy:      economy.DefaultConfig(),
		Events:       event.DefaultConfig(),
		LootBoxCost:  5000,
		LootBoxDelay: 2 * time.Second,
		NewsInterval: 8 * time.Second,
	}
}

// Deps are the collaborators of a Game. Rand and Now default to a
// clock-seeded source and time.Now.
type Deps struct {
	Scheduler *scheduler.Scheduler
	Notifier  Notifier
	Hooks     *hook.HookCenter
	Logger    *zap.Logger
	Rand      plate.Rand
	Now       func() time.Time
}

// Game is the controller of one player's session. Every command and timer
// callback holds mu, so the economy is touched by one sequence at a time.
type Game struct {
	ID string

	mu         sync.Mutex
	cfg        Config
	rng        plate.Rand
	state      *economy.State
	quests     *quest.Service
	events     *event.Board
	sched      *scheduler.Scheduler
	notifier   Notifier
	hooks      *hook.HookCenter
	logger     *zap.Logger
	now        func() time.Time
	boxSeq     int
	newsIdx    int
	headline   string
	created    time.Time
	lastActive time.Time
	closed     bool
}

// New starts a fresh game: day 1, starting money, market board, auctions,
// quests, the welcome notice and the news ticker.
func New(ctx context.Context, id string, cfg Config, deps Deps) *Game {
	if deps.Rand == nil {
		deps.Rand = plate.NewRand(0)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Hooks == nil {
		deps.Hooks = hook.NewHookCenter()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.New(deps.Logger)
	}
	g := &Game{
		ID:       id,
		cfg:      cfg,
		rng:      deps.Rand,
		state:    economy.New(cfg.Economy, deps.Rand),
		quests:   quest.NewService(quest.DefaultQuests(), deps.Logger),
		events:   event.NewBoard(cfg.Events),
		sched:    deps.Scheduler,
		notifier: deps.Notifier,
		hooks:    deps.Hooks,
		logger:   deps.Logger.With(zap.String("session_id", id)),
		now:      deps.Now,
	}
	g.created = g.now()
	g.lastActive = g.created

	g.mu.Lock()
	g.notify(ctx, SeveritySuccess, "Добро пожаловать на рынок автономеров!")
	g.mu.Unlock()
	_, _ = g.hooks.Trigger(ctx, hook.OnSessionStart, g.ID)
	g.startNews()
	g.logger.Info("game started", zap.Int64("money", cfg.Economy.StartMoney))
	return g
}

// Close stops the session's ticker. Pending box reveals still fire.
func (g *Game) Close(ctx context.Context) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	g.sched.Remove(g.ID, "news")
	_, _ = g.hooks.Trigger(ctx, hook.OnSessionEnd, g.ID)
	g.logger.Info("game closed")
}

// LastActive returns the time of the last command.
func (g *Game) LastActive() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActive
}

// Purchase is the outcome of a buy. Confiscated purchases cost the price
// but deliver nothing.
type Purchase struct {
	Plate       plate.Plate `json:"plate"`
	Price       int64       `json:"price"`
	Confiscated bool        `json:"confiscated"`
}

// Sale is the outcome of selling an inventory plate.
type Sale struct {
	Plate plate.Plate `json:"plate"`
	Price int64       `json:"price"`
}

// BoxTicket describes a paid loot box awaiting reveal.
type BoxTicket struct {
	Cost     int64     `json:"cost"`
	RevealAt time.Time `json:"reveal_at"`
}

// DayReport summarises a day advance.
type DayReport struct {
	Day     int          `json:"day"`
	Event   *event.Event `json:"event,omitempty"`
	Expired []string     `json:"expired_auctions,omitempty"`
}

// OpenShop returns a shop's current listings. The market board keeps its
// daily listings; every other shop is restocked on each visit.
func (g *Game) OpenShop(ctx context.Context, id shop.ID) ([]shop.Listing, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	if id == shop.Market {
		return cloneListings(g.state.Listings[shop.Market]), nil
	}
	ls, err := g.state.Refresh(id)
	if err != nil {
		return []shop.Listing{}, g.fail(ctx, "open_shop", "", err)
	}
	return cloneListings(ls), nil
}

// BuyFromShop buys a listed plate. A counterfeit black market plate may be
// confiscated instead: the price is lost and reputation drops.
func (g *Game) BuyFromShop(ctx context.Context, id shop.ID, plateID string) (Purchase, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	l, err := g.state.Listing(id, plateID)
	if err != nil {
		return Purchase{}, g.fail(ctx, "buy", plateID, err)
	}
	if _, err := g.hooks.Trigger(ctx, hook.BeforePurchase, &l); errors.Is(err, hook.ErrInterrupt) {
		return Purchase{}, g.fail(ctx, "buy", plateID, ErrPurchaseBlocked)
	}

	if l.Counterfeit && g.rng.Float64() > confiscationChance {
		if _, err := g.state.Confiscate(id, plateID); err != nil {
			return Purchase{}, g.fail(ctx, "buy", plateID, err)
		}
		g.notify(ctx, SeverityError, fmt.Sprintf("⚠️ ГИБДД конфискует поддельный номер! -%d репутации", economy.ConfiscationPenalty))
		g.record(ctx, "confiscate", plateID, -l.Price, map[string]any{"shop": id, "confiscated": true}, nil)
		g.logger.Warn("counterfeit confiscated", zap.String("plate_id", plateID), zap.Int64("price", l.Price))
		return Purchase{Plate: l.Plate, Price: l.Price, Confiscated: true}, nil
	}

	p, err := g.state.Buy(id, plateID)
	if err != nil {
		return Purchase{}, g.fail(ctx, "buy", plateID, err)
	}
	if p.Rarity.Rare() {
		g.notify(ctx, SeveritySuccess, fmt.Sprintf("Куплен редкий номер! +%d репутации", economy.RareBuyReputation))
	} else {
		g.notify(ctx, SeveritySuccess, fmt.Sprintf("Номер %s куплен за %d ₽", p.Number, l.Price))
	}
	g.record(ctx, "buy", plateID, -l.Price, map[string]any{"shop": id, "rarity": p.Rarity}, nil)
	return Purchase{Plate: p, Price: l.Price}, nil
}

// SellFromInventory sells an owned plate.
func (g *Game) SellFromInventory(ctx context.Context, plateID string) (Sale, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	p, price, err := g.state.Sell(plateID)
	if err != nil {
		return Sale{}, g.fail(ctx, "sell", plateID, err)
	}
	g.notify(ctx, SeveritySuccess, fmt.Sprintf("Номер продан за %d ₽", price))
	g.record(ctx, "sell", plateID, price, map[string]any{"rarity": p.Rarity, "purchase_price": p.PurchasePrice}, nil)
	return Sale{Plate: p, Price: price}, nil
}

// AddToShowcase moves an owned plate into the collector's showcase.
func (g *Game) AddToShowcase(ctx context.Context, plateID string) (plate.Plate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	p, err := g.state.AddToCollection(plateID)
	if err != nil {
		return plate.Plate{}, g.fail(ctx, "showcase", plateID, err)
	}
	g.notify(ctx, SeveritySuccess, fmt.Sprintf("Номер добавлен в коллекцию! +%d репутации", economy.ShowcaseReputation))
	g.record(ctx, "showcase", plateID, 0, map[string]any{"showcase_size": len(g.state.Showcase)}, nil)
	return p, nil
}

// OpenLootBox pays for a GIBDD box now and reveals its plate after the
// configured delay. Each box gets its own timer.
func (g *Game) OpenLootBox(ctx context.Context) (BoxTicket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	now := g.now()
	cost := g.events.BoxCost(now, g.cfg.LootBoxCost)
	if err := g.state.PayLootBox(cost); err != nil {
		return BoxTicket{}, g.fail(ctx, "loot_box", "", err)
	}
	g.boxSeq++
	g.sched.After(g.ID, fmt.Sprintf("box:%d", g.boxSeq), g.cfg.LootBoxDelay, g.revealBox)
	g.record(ctx, "loot_box", "", -cost, map[string]any{"box": g.boxSeq, "free": cost == 0}, nil)
	return BoxTicket{Cost: cost, RevealAt: now.Add(g.cfg.LootBoxDelay)}, nil
}

func (g *Game) revealBox() {
	g.mu.Lock()
	defer g.mu.Unlock()
	ctx := context.Background()

	p := g.state.RevealLootBox()
	if p.Rarity.Rare() {
		g.notify(ctx, SeveritySuccess, fmt.Sprintf("🎉 Редкий номер из коробки! +%d репутации", economy.RareRevealReputation))
	} else {
		g.notify(ctx, SeveritySuccess, fmt.Sprintf("Получен номер %s", p.Number))
	}
	_, _ = g.hooks.Trigger(ctx, hook.OnLootBoxReveal, p)
	g.record(ctx, "loot_box_reveal", p.ID, 0, map[string]any{"rarity": p.Rarity, "number": p.Number}, nil)
}

// PlaceBid bids on the auction at index. Money is checked but not held.
func (g *Game) PlaceBid(ctx context.Context, index int, amount int64) (auction.Auction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	a, err := g.state.PlaceBid(index, amount)
	if err != nil {
		return auction.Auction{}, g.fail(ctx, "bid", "", err)
	}
	g.notify(ctx, SeveritySuccess, "Ставка сделана!")
	g.record(ctx, "bid", a.Plate.ID, amount, map[string]any{"index": index, "bidders": a.Bidders}, nil)
	return *a, nil
}

// CheckQuest evaluates a quest and grants its reward once.
func (g *Game) CheckQuest(ctx context.Context, id int) (quest.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	st, def, err := g.quests.Check(id, g.state)
	if err != nil {
		return st, g.fail(ctx, "quest", "", err)
	}
	switch st {
	case quest.StatusGranted:
		g.notify(ctx, SeveritySuccess, fmt.Sprintf("Задание выполнено! +%d ₽", def.RewardMoney))
		_, _ = g.hooks.Trigger(ctx, hook.OnQuestComplete, def)
		g.record(ctx, "quest", "", def.RewardMoney, map[string]any{"quest_id": id, "reward_reputation": def.RewardReputation}, nil)
	case quest.StatusNotMet:
		g.notify(ctx, SeverityWarning, "Условия задания ещё не выполнены")
	}
	return st, nil
}

// AdvanceDay moves to the next day.
func (g *Game) AdvanceDay(ctx context.Context) DayReport {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()
	return g.advanceDay(ctx)
}

func (g *Game) advanceDay(ctx context.Context) DayReport {
	expired := g.state.NextDay()
	report := DayReport{Day: g.state.Day}

	if e, fired := g.events.Roll(g.rng, g.now(), g.state.Listings[shop.Market]); fired {
		report.Event = &e
		g.notify(ctx, SeverityInfo, e.Text)
		_, _ = g.hooks.Trigger(ctx, hook.OnMarketEvent, e)
		g.logger.Info("market event", zap.String("kind", string(e.Kind)))
	}

	for _, a := range expired {
		report.Expired = append(report.Expired, a.Plate.ID)
		if g.rng.Float64() > 0.5 {
			g.notify(ctx, SeverityWarning, fmt.Sprintf("Аукцион завершён. NPC выиграл %s", a.Plate.Number))
		}
	}

	g.notify(ctx, SeveritySuccess, fmt.Sprintf("День %d. Новые объявления на рынке!", g.state.Day))
	_, _ = g.hooks.Trigger(ctx, hook.AfterDayAdvance, report)
	g.record(ctx, "advance_day", "", 0, dayDetail(report), nil)
	return report
}

// DoWork works one shift of a job. The shift takes the day, but the
// market, auctions and events are left to AdvanceDay.
func (g *Game) DoWork(ctx context.Context, jobID string) (WorkResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch()

	job, ok := Jobs[jobID]
	if !ok {
		return WorkResult{}, g.fail(ctx, "work", "", ErrUnknownJob)
	}
	res := WorkResult{Job: job, Earned: job.Pay}
	if job.FineChance > 0 && g.rng.Float64() > 1-job.FineChance {
		res.Fined = true
		res.Earned -= job.Fine
	}
	g.state.Credit(res.Earned, 0)
	if res.Fined {
		g.notify(ctx, SeverityWarning, fmt.Sprintf("Отработали %s: +%d ₽, штраф камеры -%d ₽", job.Title, job.Pay, job.Fine))
	} else {
		g.notify(ctx, SeveritySuccess, fmt.Sprintf("Отработали %s. +%d ₽", job.Title, job.Pay))
	}
	res.Day = g.state.PassDay()
	g.record(ctx, "work", "", res.Earned, map[string]any{"job": job.ID, "fined": res.Fined}, nil)
	return res, nil
}

func (g *Game) touch() {
	g.lastActive = g.now()
}

// notify must be called with mu held.
func (g *Game) notify(ctx context.Context, sev Severity, msg string) {
	if g.notifier == nil {
		return
	}
	n := Notification{Message: msg, Severity: sev, At: g.now()}
	if err := g.notifier.Notify(ctx, g.ID, n); err != nil {
		g.logger.Warn("notify failed", zap.Error(err))
	}
}

// fail surfaces err as an error notification, records it and returns it.
func (g *Game) fail(ctx context.Context, action, plateID string, err error) error {
	sev := SeverityError
	if errors.Is(err, economy.ErrCollectionFull) {
		sev = SeverityWarning
	}
	g.notify(ctx, sev, errorMessage(err, g.cfg.Economy.Shop.GarageMinReputation))
	g.record(ctx, action, plateID, 0, nil, err)
	return err
}

func errorMessage(err error, garageRep int) string {
	switch {
	case errors.Is(err, economy.ErrInsufficientFunds):
		return "Недостаточно денег!"
	case errors.Is(err, economy.ErrCollectionFull):
		return "Коллекция заполнена!"
	case errors.Is(err, economy.ErrInvalidBid):
		return "Ставка должна быть выше текущей!"
	case errors.Is(err, economy.ErrGateNotMet):
		return fmt.Sprintf("Требуется репутация %d+ для доступа к редким номерам", garageRep)
	case errors.Is(err, economy.ErrPlateNotFound):
		return "Номер не найден"
	case errors.Is(err, economy.ErrAuctionNotFound):
		return "Аукцион не найден"
	case errors.Is(err, ErrPurchaseBlocked):
		return "Сделка заблокирована"
	default:
		return err.Error()
	}
}

func cloneListings(ls []shop.Listing) []shop.Listing {
	out := make([]shop.Listing, len(ls))
	copy(out, ls)
	return out
}
