package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/kasuganosora/platemarket/game/session"
	"go.uber.org/zap"
)

var (
	errMalformedPacket = errors.New("malformed packet")
	errStalePacket     = errors.New("stale packet sequence")
	errInternal        = errors.New("internal error")
)

// HandlerFunc processes a decoded WS packet.
type HandlerFunc func(ctx context.Context, c *Conn, pkt *Packet) error

// Router maps packet types to game commands.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates an empty Router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{handlers: make(map[string]HandlerFunc), logger: logger}
}

// On registers fn for packets of msgType.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes one client packet and runs its handler under a fresh
// trace id. Packets that cannot run are answered with an "error" packet:
// malformed JSON, a non-zero seq not above the last one, an unknown type,
// or a handler panic.
func (r *Router) Dispatch(c *Conn, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet", zap.String("session_id", c.SessionID), zap.Error(err))
		c.Send(0, "error", errorPayload{Error: errMalformedPacket.Error(), Status: http.StatusBadRequest})
		return
	}
	if pkt.Seq != 0 {
		if pkt.Seq <= c.LastSeq {
			r.logger.Warn("stale packet",
				zap.String("session_id", c.SessionID),
				zap.Uint64("seq", pkt.Seq),
				zap.Uint64("last_seq", c.LastSeq))
			c.Send(pkt.Seq, "error", errorPayload{Action: pkt.Type, Error: errStalePacket.Error(), Status: http.StatusConflict})
			return
		}
		c.LastSeq = pkt.Seq
	}

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Debug("unknown packet type", zap.String("type", pkt.Type), zap.String("session_id", c.SessionID))
		c.Send(pkt.Seq, "error", errorPayload{Action: pkt.Type, Error: session.ErrUnknownAction.Error(), Status: http.StatusBadRequest})
		return
	}

	traceID := uuid.NewString()
	log := r.logger.With(
		zap.String("type", pkt.Type),
		zap.String("session_id", c.SessionID),
		zap.String("trace_id", traceID))
	defer func() {
		if p := recover(); p != nil {
			log.Error("ws handler panicked", zap.Any("panic", p), zap.Stack("stack"))
			c.Send(pkt.Seq, "error", errorPayload{Action: pkt.Type, Error: errInternal.Error(), Status: http.StatusInternalServerError})
		}
	}()
	if err := fn(session.WithTraceID(context.Background(), traceID), c, &pkt); err != nil {
		log.Debug("ws handler error", zap.Error(err))
	}
}

type errorPayload struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}
