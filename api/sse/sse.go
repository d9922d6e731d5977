package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/platemarket/cache"
	"github.com/kasuganosora/platemarket/config"
	"github.com/kasuganosora/platemarket/game/session"
	mw "github.com/kasuganosora/platemarket/middleware"
	"go.uber.org/zap"
)

// HistorySource returns a session's stored notifications, newest first.
type HistorySource interface {
	History(ctx context.Context, sessionID string) ([]session.Notification, error)
}

// Handler streams a session's notifications as server-sent events.
type Handler struct {
	pubsub    cache.PubSub
	sec       config.SecurityConfig
	c         cache.Cache
	history   HistorySource
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a Handler. history may be nil, which disables replay.
func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, history HistorySource, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, c: c, sec: sec, history: history, logger: logger, keepalive: 30 * time.Second}
}

// stream numbers the events of one connection.
type stream struct {
	w    gin.ResponseWriter
	next int
}

func (s *stream) send(event, data string) {
	s.next++
	writeEvent(s.w, strconv.Itoa(s.next), event, data)
	s.w.Flush()
}

// writeEvent writes one event; multi-line data is split over data fields.
func writeEvent(w io.Writer, id, event, data string) {
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

// ServeSSE handles GET /sse?token=<jwt>[&replay=1]. Session notifications
// arrive as "notify" events and admin broadcasts as "announce" events. With
// replay set, the stored history is sent first, oldest first.
func (h *Handler) ServeSSE(c *gin.Context) {
	ctx := c.Request.Context()
	claims, err := mw.Authenticate(ctx, c.Query("token"), h.sec, h.c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	sid := claims.SessionID

	// subscribe before replaying so nothing published in between is lost
	msgCh, unsub, err := h.pubsub.Subscribe(ctx, session.NotifyChannel(sid), session.AnnounceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("session_id", sid), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	s := &stream{w: c.Writer}
	hello, _ := json.Marshal(gin.H{"session_id": sid})
	s.send("connected", string(hello))
	if replay, _ := strconv.ParseBool(c.Query("replay")); replay {
		h.replay(ctx, s, sid)
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			event := "notify"
			if msg.Channel == session.AnnounceChannel {
				event = "announce"
			}
			s.send(event, msg.Payload)
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) replay(ctx context.Context, s *stream, sid string) {
	if h.history == nil {
		return
	}
	past, err := h.history.History(ctx, sid)
	if err != nil {
		h.logger.Warn("sse history unavailable", zap.String("session_id", sid), zap.Error(err))
		return
	}
	for i := len(past) - 1; i >= 0; i-- {
		data, err := json.Marshal(past[i])
		if err != nil {
			continue
		}
		s.send("notify", string(data))
	}
}
