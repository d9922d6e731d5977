package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apirest "github.com/kasuganosora/platemarket/api/rest"
	"github.com/kasuganosora/platemarket/api/sse"
	apows "github.com/kasuganosora/platemarket/api/ws"
	"github.com/kasuganosora/platemarket/audit"
	"github.com/kasuganosora/platemarket/cache"
	"github.com/kasuganosora/platemarket/config"
	"github.com/kasuganosora/platemarket/game/session"
	mw "github.com/kasuganosora/platemarket/middleware"
	"github.com/kasuganosora/platemarket/plugin/hook"
	"github.com/kasuganosora/platemarket/resource"
	"github.com/kasuganosora/platemarket/scheduler"
	"github.com/kasuganosora/platemarket/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// AdminKey is the plain admin key accepted by the test server.
const AdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	DB     *gorm.DB
	Cache  cache.Cache
	PubSub cache.PubSub
	Mgr    *session.Manager
	Ledger *audit.Service
	Sched  *scheduler.Scheduler
	Server *httptest.Server
	URL    string // http://127.0.0.1:<port>
	WSURL  string // ws://127.0.0.1:<port>/ws
	Sec    config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTL:         72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
		AllowedOrigins: []string{}, // allow all origins
	}
	keyHash, err := bcrypt.GenerateFromPassword([]byte(AdminKey), bcrypt.MinCost)
	require.NoError(t, err)

	hooks := hook.NewHookCenter()
	ledger := audit.New(db, logger)
	ledger.Attach(hooks)

	catalog, err := resource.Load("", logger)
	require.NoError(t, err)

	sched := scheduler.New(logger)

	// ---- Game sessions ----
	gameCfg := session.ConfigFrom(config.GameConfig{
		LootBoxDelay: 20 * time.Millisecond,
		NewsInterval: -1,
	})
	notifier := session.NewCacheNotifier(c, pubsub, 50, time.Hour)
	mgr := session.NewManager(gameCfg, time.Hour, sched, notifier, hooks, logger)

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	apows.NewGameHandlers(mgr, logger).RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(t.Context(), rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": mgr.Count()})
	})

	// ---- REST API routes (mirrors main.go) ----
	gameH := apirest.NewGameHandler(mgr, notifier, c, sec, logger)
	adminH := apirest.NewAdminHandler(mgr, sched, ledger, pubsub, logger)
	assetH := apirest.NewAssetHandler(catalog)

	api := r.Group("/api")
	{
		gameH.Register(api, api.Group("", mw.Auth(sec, c)))
		api.GET("/assets/:key", assetH.Lookup)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(nil), apirest.AdminAuth(string(keyHash)))
		adminH.Register(adminG)
	}

	// ---- WebSocket / SSE ----
	wsH := apows.NewHandler(c, pubsub, sec, mgr, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)
	sseH := sse.NewHandler(pubsub, c, sec, notifier, logger)
	r.GET("/sse", sseH.ServeSSE)

	// ---- Start server ----
	server := httptest.NewServer(r)
	url := server.URL
	wsURL := "ws" + url[len("http"):] + "/ws"

	ts := &TestServer{
		DB:     db,
		Cache:  c,
		PubSub: pubsub,
		Mgr:    mgr,
		Ledger: ledger,
		Sched:  sched,
		Server: server,
		URL:    url,
		WSURL:  wsURL,
		Sec:    sec,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the test server and all game systems. It runs on test
// cleanup; every step tolerates a repeated call.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Mgr.CloseAll(context.Background())
	ts.Sched.Stop()
	ts.Ledger.Stop(context.Background())
}

// --- HTTP helpers ---

// Do sends a request with an optional JSON body, Bearer token and extra headers.
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}, token string, headers map[string]string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodPost, path, body, token, nil)
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodGet, path, nil, token, nil)
}

// Admin sends an admin request carrying the test admin key.
func (ts *TestServer) Admin(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	return ts.Do(t, method, path, body, "", map[string]string{"X-Admin-Key": AdminKey})
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Game helpers ---

// NewGame starts a session and returns its token and session id.
func (ts *TestServer) NewGame(t *testing.T) (token, sessionID string) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/games", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result struct {
		Token     string `json:"token"`
		SessionID string `json:"session_id"`
	}
	ReadJSON(t, resp, &result)
	require.NotEmpty(t, result.Token)
	return result.Token, result.SessionID
}

// Snapshot fetches the current state of the session behind token.
func (ts *TestServer) Snapshot(t *testing.T, token string) session.Snapshot {
	t.Helper()
	resp := ts.Get(t, "/api/game", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Result session.Snapshot `json:"result"`
	}
	ReadJSON(t, resp, &result)
	return result.Result
}

// --- WebSocket client ---

// WSClient wraps a gorilla/websocket connection for integration testing.
// A background readLoop feeds readCh so reads can time out without
// touching the connection's read deadline.
type WSClient struct {
	Conn   *websocket.Conn
	t      *testing.T
	seq    uint64
	readCh chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// ConnectWS dials the test server's WS endpoint with the given JWT token.
func (ts *TestServer) ConnectWS(t *testing.T, token string) *WSClient {
	t.Helper()
	url := ts.WSURL + "?token=" + token
	dialer := websocket.Dialer{}
	conn, resp, err := dialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err, "WS dial failed")
	wc := &WSClient{Conn: conn, t: t, readCh: make(chan readResult, 256)}
	go wc.readLoop()
	t.Cleanup(wc.Close)
	return wc
}

func (wc *WSClient) readLoop() {
	for {
		_, data, err := wc.Conn.ReadMessage()
		wc.readCh <- readResult{data, err}
		if err != nil {
			return
		}
	}
}

// Send writes a packet and returns its sequence number.
func (wc *WSClient) Send(msgType string, payload interface{}) uint64 {
	wc.t.Helper()
	seq := atomic.AddUint64(&wc.seq, 1)
	payloadJSON, err := json.Marshal(payload)
	require.NoError(wc.t, err)
	pkt := map[string]interface{}{
		"seq":     seq,
		"type":    msgType,
		"payload": json.RawMessage(payloadJSON),
	}
	data, err := json.Marshal(pkt)
	require.NoError(wc.t, err)
	require.NoError(wc.t, wc.Conn.WriteMessage(websocket.TextMessage, data))
	return seq
}

// RecvAny reads one packet, returning an error on timeout or read failure.
func (wc *WSClient) RecvAny(timeout time.Duration) (map[string]interface{}, error) {
	select {
	case res := <-wc.readCh:
		if res.err != nil {
			return nil, res.err
		}
		var pkt map[string]interface{}
		if err := json.Unmarshal(res.data, &pkt); err != nil {
			return nil, err
		}
		return pkt, nil
	case <-time.After(timeout):
		return nil, errRecvTimeout
	}
}

var errRecvTimeout = fmt.Errorf("read timeout")

// RecvType reads packets until one with the given type arrives.
func (wc *WSClient) RecvType(msgType string, timeout time.Duration) map[string]interface{} {
	wc.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		pkt, err := wc.RecvAny(remaining)
		if err != nil {
			wc.t.Fatalf("WS recv failed while waiting for %q: %v", msgType, err)
		}
		if pkt["type"] == msgType {
			return pkt
		}
	}
	wc.t.Fatalf("timed out waiting for message type %q", msgType)
	return nil
}

// Close closes the WebSocket connection.
func (wc *WSClient) Close() {
	_ = wc.Conn.Close()
}

// PayloadMap extracts the payload from a received packet as a map.
func PayloadMap(t *testing.T, pkt map[string]interface{}) map[string]interface{} {
	t.Helper()
	switch v := pkt["payload"].(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return v
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
}
