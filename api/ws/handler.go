package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/platemarket/cache"
	"github.com/kasuganosora/platemarket/config"
	"github.com/kasuganosora/platemarket/game/session"
	mw "github.com/kasuganosora/platemarket/middleware"
	"go.uber.org/zap"
)

// maxPacketSize bounds a client packet; game commands are tiny.
const maxPacketSize = 16 << 10

// Handler serves GET /ws: the game command channel of one session, which
// also carries the session's notifications and admin announcements.
type Handler struct {
	cache    cache.Cache
	pubsub   cache.PubSub
	sec      config.SecurityConfig
	mgr      *session.Manager
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. sec.AllowedOrigins lists accepted browser
// origins; an empty list or "*" accepts any.
func NewHandler(
	c cache.Cache,
	ps cache.PubSub,
	sec config.SecurityConfig,
	mgr *session.Manager,
	router *Router,
	logger *zap.Logger,
) *Handler {
	allowed := sec.AllowedOrigins
	return &Handler{
		cache:  c,
		pubsub: ps,
		sec:    sec,
		mgr:    mgr,
		router: router,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowed, r.Header.Get("Origin"))
			},
		},
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ServeWS handles GET /ws?token=<jwt>. The session must still be live.
func (h *Handler) ServeWS(c *gin.Context) {
	claims, err := mw.Authenticate(c.Request.Context(), c.Query("token"), h.sec, h.cache)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	sid := claims.SessionID
	if _, err := h.mgr.Get(sid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// the feed outlives the request context once the connection is hijacked
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	feed, unsub, err := h.pubsub.Subscribe(feedCtx, session.NotifyChannel(sid), session.AnnounceChannel)
	if err != nil {
		h.logger.Error("ws subscribe failed", zap.String("session_id", sid), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications unavailable"})
		return
	}
	defer unsub()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.String("session_id", sid), zap.Error(err))
		return
	}
	ws.SetReadLimit(maxPacketSize)
	conn := NewConn(sid, ws, h.logger)
	go h.forward(conn, feed)

	h.logger.Info("ws connected", zap.String("session_id", sid))
	h.readPump(conn)
}

// forward relays notifications to the client until the feed closes.
func (h *Handler) forward(conn *Conn, feed <-chan *cache.Message) {
	for msg := range feed {
		if !json.Valid([]byte(msg.Payload)) {
			h.logger.Warn("dropping non-JSON notification", zap.String("channel", msg.Channel))
			continue
		}
		typ := "notify"
		if msg.Channel == session.AnnounceChannel {
			typ = "announce"
		}
		conn.SendRaw(typ, mustPacket(Packet{Type: typ, Payload: json.RawMessage(msg.Payload)}))
	}
}

// readPump dispatches client packets until the socket fails. Disconnecting
// leaves the game session alive.
func (h *Handler) readPump(conn *Conn) {
	defer func() {
		conn.Close()
		h.logger.Info("ws disconnected", zap.String("session_id", conn.SessionID))
	}()

	conn.SetReadDeadline()
	conn.WS.SetPongHandler(func(string) error {
		conn.SetReadDeadline()
		return nil
	})
	for {
		_, raw, err := conn.WS.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws closed unexpectedly", zap.String("session_id", conn.SessionID), zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline()
		h.router.Dispatch(conn, raw)
	}
}
