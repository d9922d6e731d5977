package session

import (
	"context"

	"github.com/kasuganosora/platemarket/plugin/hook"
)

type traceKey struct{}

// WithTraceID attaches a request trace id to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceID returns the trace id attached to ctx, if any.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceKey{}).(string)
	return v
}

// CommandRecord describes one state-changing command. It is passed to
// after_command hooks.
type CommandRecord struct {
	SessionID  string
	TraceID    string
	Action     string
	PlateID    string
	Amount     int64
	Money      int64
	Reputation int
	Day        int
	Error      string
	// Detail holds command-specific context such as the shop, auction
	// index, quest or job. It is nil for failed commands.
	Detail map[string]any
}

// record must be called with mu held.
func (g *Game) record(ctx context.Context, action, plateID string, amount int64, detail map[string]any, err error) {
	rec := &CommandRecord{
		SessionID:  g.ID,
		TraceID:    TraceID(ctx),
		Action:     action,
		PlateID:    plateID,
		Amount:     amount,
		Money:      g.state.Money,
		Reputation: g.state.Reputation,
		Day:        g.state.Day,
		Detail:     detail,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	_, _ = g.hooks.Trigger(ctx, hook.AfterCommand, rec)
}

func dayDetail(r DayReport) map[string]any {
	d := map[string]any{"expired_auctions": len(r.Expired)}
	if r.Event != nil {
		d["event"] = r.Event.Kind
	}
	return d
}
