package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/platemarket/cache"
	"github.com/kasuganosora/platemarket/config"
	"github.com/kasuganosora/platemarket/game/economy"
	"github.com/kasuganosora/platemarket/game/session"
	mw "github.com/kasuganosora/platemarket/middleware"
	"github.com/kasuganosora/platemarket/plugin/hook"
	"github.com/kasuganosora/platemarket/scheduler"
	"github.com/kasuganosora/platemarket/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsEnv struct {
	mgr    *session.Manager
	router *Router
	c      cache.Cache
	ps     cache.PubSub
	sec    config.SecurityConfig
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	c, ps := testutil.SetupTestCache(t)
	sched := scheduler.New(nop())
	t.Cleanup(sched.Stop)
	cfg := session.DefaultConfig()
	cfg.NewsInterval = 0
	mgr := session.NewManager(cfg, time.Hour, sched, session.NewCacheNotifier(c, ps, 20, time.Hour), hook.NewHookCenter(), nop())
	r := NewRouter(nop())
	NewGameHandlers(mgr, nop()).RegisterHandlers(r)
	return &wsEnv{mgr: mgr, router: r, c: c, ps: ps, sec: config.SecurityConfig{JWTSecret: "ws-secret", JWTTTL: time.Hour}}
}

func TestHandlePing_SendsPong(t *testing.T) {
	env := newWSEnv(t)
	c := newTestConn("s")
	env.router.Dispatch(c, makePacket(t, 1, "ping", map[string]interface{}{"ts": int64(12345)}))

	pkt := recv(t, c)
	assert.Equal(t, "pong", pkt.Type)
	assert.Contains(t, string(pkt.Payload), `"client_ts":12345`)
}

func TestCommand_Result(t *testing.T) {
	env := newWSEnv(t)
	g := env.mgr.Create(context.Background())
	c := newTestConn(g.ID)

	env.router.Dispatch(c, makePacket(t, 1, session.ActionAdvanceDay, nil))
	pkt := recv(t, c)
	require.Equal(t, "result", pkt.Type)
	var res struct {
		Action string            `json:"action"`
		Result session.DayReport `json:"result"`
	}
	require.NoError(t, json.Unmarshal(pkt.Payload, &res))
	assert.Equal(t, session.ActionAdvanceDay, res.Action)
	assert.Equal(t, 2, res.Result.Day)
}

func TestCommand_ErrorCarriesStatus(t *testing.T) {
	env := newWSEnv(t)
	g := env.mgr.Create(context.Background())
	c := newTestConn(g.ID)

	env.router.Dispatch(c, makePacket(t, 1, session.ActionOpenShop, map[string]string{"shop": "garage"}))
	pkt := recv(t, c)
	require.Equal(t, "error", pkt.Type)
	var e errorPayload
	require.NoError(t, json.Unmarshal(pkt.Payload, &e))
	assert.Equal(t, http.StatusForbidden, e.Status)

	env.router.Dispatch(c, makePacket(t, 2, session.ActionSell, "not an object"))
	pkt = recv(t, c)
	require.Equal(t, "error", pkt.Type)
	assert.Contains(t, string(pkt.Payload), "invalid payload")
}

func TestCommand_BidAmountAsNumber(t *testing.T) {
	env := newWSEnv(t)
	g := env.mgr.Create(context.Background())
	c := newTestConn(g.ID)

	env.router.Dispatch(c, makePacket(t, 1, session.ActionBid, map[string]interface{}{"index": 0, "amount": 1}))
	pkt := recv(t, c)
	require.Equal(t, "error", pkt.Type)
	var e errorPayload
	require.NoError(t, json.Unmarshal(pkt.Payload, &e))
	assert.Equal(t, economy.ErrInvalidBid.Error(), e.Error)

	snap := g.Snapshot()
	bid := snap.Auctions[0].CurrentBid + 1
	env.router.Dispatch(c, makePacket(t, 2, session.ActionBid, map[string]interface{}{"index": 0, "amount": bid}))
	pkt = recv(t, c)
	if bid > snap.Money {
		require.Equal(t, "error", pkt.Type)
		assert.Contains(t, string(pkt.Payload), economy.ErrInsufficientFunds.Error())
		return
	}
	require.Equal(t, "result", pkt.Type)
	assert.Equal(t, bid, g.Snapshot().Auctions[0].CurrentBid)
}

func TestCommand_UnknownSession(t *testing.T) {
	env := newWSEnv(t)
	c := newTestConn("ghost")
	env.router.Dispatch(c, makePacket(t, 1, session.ActionSnapshot, nil))
	pkt := recv(t, c)
	require.Equal(t, "error", pkt.Type)
	var e errorPayload
	require.NoError(t, json.Unmarshal(pkt.Payload, &e))
	assert.Equal(t, http.StatusNotFound, e.Status)
}

func TestServeWS_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newWSEnv(t)
	h := NewHandler(env.c, env.ps, env.sec, env.mgr, env.router, nop())
	r := gin.New()
	r.GET("/ws", h.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token="

	// rejected before upgrade
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"bad", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx := context.Background()
	g := env.mgr.Create(ctx)
	tok, err := mw.GenerateToken(g.ID, env.sec.JWTSecret, time.Hour)
	require.NoError(t, err)
	require.NoError(t, env.c.Set(ctx, mw.SessionKey(tok), g.ID, time.Hour))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Packet{Seq: 1, Type: session.ActionAdvanceDay}))

	var gotResult, gotNotify bool
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for !(gotResult && gotNotify) {
		var pkt Packet
		require.NoError(t, conn.ReadJSON(&pkt))
		switch pkt.Type {
		case "result":
			assert.Equal(t, uint64(1), pkt.Seq)
			gotResult = true
		case "notify":
			var n session.Notification
			require.NoError(t, json.Unmarshal(pkt.Payload, &n))
			assert.NotEmpty(t, n.Message)
			gotNotify = true
		}
	}
}
