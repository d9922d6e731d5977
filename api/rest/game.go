package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/platemarket/cache"
	"github.com/kasuganosora/platemarket/config"
	"github.com/kasuganosora/platemarket/game/session"
	mw "github.com/kasuganosora/platemarket/middleware"
	"go.uber.org/zap"
)

// HistoryReader returns the recent notifications of a session.
type HistoryReader interface {
	History(ctx context.Context, sessionID string) ([]session.Notification, error)
}

// GameHandler exposes the game controller over REST. Every route funnels
// through Game.Dispatch.
type GameHandler struct {
	mgr     *session.Manager
	history HistoryReader
	cache   cache.Cache
	sec     config.SecurityConfig
	logger  *zap.Logger
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(mgr *session.Manager, history HistoryReader, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *GameHandler {
	return &GameHandler{mgr: mgr, history: history, cache: c, sec: sec, logger: logger}
}

// Register mounts the public and authenticated game routes.
func (h *GameHandler) Register(public, authed gin.IRoutes) {
	public.POST("/games", h.NewGame)

	authed.GET("/game", h.Snapshot)
	authed.POST("/game/shops/:shop/open", h.OpenShop)
	authed.POST("/game/shops/:shop/buy/:plate", h.Buy)
	authed.POST("/game/inventory/:plate/sell", h.Sell)
	authed.POST("/game/inventory/:plate/showcase", h.Showcase)
	authed.POST("/game/lootbox", h.LootBox)
	authed.POST("/game/auctions/:index/bid", h.Bid)
	authed.POST("/game/quests/:id/check", h.CheckQuest)
	authed.POST("/game/day", h.AdvanceDay)
	authed.POST("/game/work/:job", h.Work)
	authed.GET("/game/notifications", h.Notifications)
	authed.POST("/game/commands", h.Command)
}

// NewGame handles POST /api/games.
// It starts a session and returns its token with the initial snapshot.
func (h *GameHandler) NewGame(c *gin.Context) {
	ctx := requestContext(c)
	g := h.mgr.Create(ctx)

	token, err := mw.GenerateToken(g.ID, h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		_ = h.mgr.Remove(ctx, g.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.cache.Set(cacheCtx, mw.SessionKey(token), g.ID, h.sec.JWTTTL); err != nil {
		h.logger.Error("store session token", zap.String("session_id", g.ID), zap.Error(err))
		_ = h.mgr.Remove(ctx, g.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"session_id": g.ID,
		"state":      g.Snapshot(),
	})
}

// Snapshot handles GET /api/game.
func (h *GameHandler) Snapshot(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionSnapshot})
}

// OpenShop handles POST /api/game/shops/:shop/open.
func (h *GameHandler) OpenShop(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionOpenShop, Shop: c.Param("shop")})
}

// Buy handles POST /api/game/shops/:shop/buy/:plate.
func (h *GameHandler) Buy(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionBuy, Shop: c.Param("shop"), PlateID: c.Param("plate")})
}

// Sell handles POST /api/game/inventory/:plate/sell.
func (h *GameHandler) Sell(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionSell, PlateID: c.Param("plate")})
}

// Showcase handles POST /api/game/inventory/:plate/showcase.
func (h *GameHandler) Showcase(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionShowcase, PlateID: c.Param("plate")})
}

// LootBox handles POST /api/game/lootbox.
func (h *GameHandler) LootBox(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionLootBox})
}

type bidRequest struct {
	Amount session.Amount `json:"amount"`
}

// Bid handles POST /api/game/auctions/:index/bid.
// The amount may be sent as a JSON string or number; validation happens in
// the game so that a malformed amount is reported as an invalid bid.
func (h *GameHandler) Bid(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	var req bidRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	h.run(c, session.Command{Action: session.ActionBid, Index: index, Amount: req.Amount})
}

// CheckQuest handles POST /api/game/quests/:id/check.
func (h *GameHandler) CheckQuest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	h.run(c, session.Command{Action: session.ActionCheckQuest, QuestID: id})
}

// AdvanceDay handles POST /api/game/day.
func (h *GameHandler) AdvanceDay(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionAdvanceDay})
}

// Work handles POST /api/game/work/:job.
func (h *GameHandler) Work(c *gin.Context) {
	h.run(c, session.Command{Action: session.ActionWork, JobID: c.Param("job")})
}

// Command handles POST /api/game/commands with a raw command body.
func (h *GameHandler) Command(c *gin.Context) {
	var cmd session.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.run(c, cmd)
}

// Notifications handles GET /api/game/notifications.
func (h *GameHandler) Notifications(c *gin.Context) {
	sid := mw.GetSessionID(c)
	if _, err := h.mgr.Get(sid); err != nil {
		respondError(c, err)
		return
	}
	list, err := h.history.History(requestContext(c), sid)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []session.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *GameHandler) run(c *gin.Context, cmd session.Command) {
	g, err := h.mgr.Get(mw.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := g.Dispatch(requestContext(c), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}

func requestContext(c *gin.Context) context.Context {
	return session.WithTraceID(c.Request.Context(), mw.GetTraceID(c))
}
