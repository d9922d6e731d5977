package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/platemarket/api/rest"
	"github.com/kasuganosora/platemarket/game/session"
	"go.uber.org/zap"
)

// GameHandlers routes game command packets to the session controller.
type GameHandlers struct {
	mgr    *session.Manager
	logger *zap.Logger
}

// NewGameHandlers creates GameHandlers.
func NewGameHandlers(mgr *session.Manager, logger *zap.Logger) *GameHandlers {
	return &GameHandlers{mgr: mgr, logger: logger}
}

// RegisterHandlers registers ping and one packet type per game action.
func (gh *GameHandlers) RegisterHandlers(r *Router) {
	r.On("ping", gh.HandlePing)
	for _, action := range session.Actions() {
		r.On(action, gh.command(action))
	}
}

type pingPayload struct {
	TS int64 `json:"ts"`
}

// HandlePing answers a client heartbeat.
func (gh *GameHandlers) HandlePing(_ context.Context, c *Conn, pkt *Packet) error {
	var p pingPayload
	if len(pkt.Payload) > 0 {
		_ = json.Unmarshal(pkt.Payload, &p)
	}
	c.Send(pkt.Seq, "pong", map[string]int64{
		"client_ts": p.TS,
		"server_ts": time.Now().UnixMilli(),
	})
	return nil
}

type resultPayload struct {
	Action string      `json:"action"`
	Result interface{} `json:"result"`
}

func (gh *GameHandlers) command(action string) HandlerFunc {
	return func(ctx context.Context, c *Conn, pkt *Packet) error {
		var cmd session.Command
		if len(pkt.Payload) > 0 {
			if err := json.Unmarshal(pkt.Payload, &cmd); err != nil {
				c.Send(pkt.Seq, "error", errorPayload{Action: action, Error: "invalid payload", Status: 400})
				return err
			}
		}
		cmd.Action = action

		g, err := gh.mgr.Get(c.SessionID)
		if err == nil {
			var out interface{}
			if out, err = g.Dispatch(ctx, cmd); err == nil {
				c.Send(pkt.Seq, "result", resultPayload{Action: action, Result: out})
				return nil
			}
		}
		c.Send(pkt.Seq, "error", errorPayload{Action: action, Error: err.Error(), Status: rest.StatusFor(err)})
		return err
	}
}
