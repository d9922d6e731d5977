package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/platemarket/cache"
	"github.com/kasuganosora/platemarket/game/session"
	"github.com/kasuganosora/platemarket/model"
	"github.com/kasuganosora/platemarket/scheduler"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LedgerReader queries the transaction ledger.
type LedgerReader interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]model.LedgerEntry, error)
}

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	mgr    *session.Manager
	sched  *scheduler.Scheduler
	ledger LedgerReader
	pubsub cache.PubSub
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler. ledger may be nil when the
// ledger is disabled.
func NewAdminHandler(
	mgr *session.Manager,
	sched *scheduler.Scheduler,
	ledger LedgerReader,
	ps cache.PubSub,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{mgr: mgr, sched: sched, ledger: ledger, pubsub: ps, logger: logger}
}

// Register mounts the admin routes.
func (h *AdminHandler) Register(r gin.IRoutes) {
	r.GET("/metrics", h.Metrics)
	r.GET("/ledger", h.Ledger)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.POST("/announce", h.Announce)
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	repeating, pending := h.sched.Stats()
	c.JSON(http.StatusOK, gin.H{
		"active_sessions": h.mgr.Count(),
		"scheduler_tasks": h.sched.Tasks(),
		"tickers":         repeating,
		"pending_timers":  pending,
		"ledger_enabled":  h.ledger != nil,
	})
}

// Ledger returns the newest ledger entries.
// GET /api/admin/ledger?session=<id>&limit=<n>
func (h *AdminHandler) Ledger(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger disabled"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := h.ledger.Recent(c.Request.Context(), c.Query("session"), limit)
	if err != nil {
		h.logger.Error("ledger query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// DeleteSession ends a game session.
// DELETE /api/admin/sessions/:id
func (h *AdminHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.mgr.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("admin ended session", zap.String("session_id", id))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Announce broadcasts a notification to every connected session.
// POST /api/admin/announce
func (h *AdminHandler) Announce(c *gin.Context) {
	var req struct {
		Message  string           `json:"message" binding:"required,max=500"`
		Severity session.Severity `json:"severity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Severity == "" {
		req.Severity = session.SeverityInfo
	}
	payload, _ := json.Marshal(session.Notification{Message: req.Message, Severity: req.Severity, At: time.Now()})
	if err := h.pubsub.Publish(c.Request.Context(), session.AnnounceChannel, string(payload)); err != nil {
		h.logger.Error("announce publish failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header against
// a bcrypt hash.
// WARNING: if keyHash is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set
// server.admin_key to the bcrypt hash of the key to enable admin routes.
func AdminAuth(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
