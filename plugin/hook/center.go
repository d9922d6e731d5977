package hook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Event names a point in a game session where observers can attach.
type Event string

// Session lifecycle and market events.
const (
	OnSessionStart  Event = "session.start"   // data: session id
	OnSessionEnd    Event = "session.end"     // data: session id
	BeforePurchase  Event = "purchase.before" // data: *shop.Listing, ErrInterrupt vetoes
	AfterCommand    Event = "command.after"   // data: *session.CommandRecord
	AfterDayAdvance Event = "day.after"       // data: session.DayReport
	OnQuestComplete Event = "quest.complete"  // data: *quest.QuestDef
	OnMarketEvent   Event = "market.event"    // data: event.Event
	OnLootBoxReveal Event = "lootbox.reveal"  // data: plate.Plate
)

// ErrInterrupt stops the chain. Triggers that allow a veto check for it with
// errors.Is.
var ErrInterrupt = errors.New("hook: interrupted")

// HookFn observes or rewrites the data of a triggered event. The returned
// value is handed to the next hook in the chain.
type HookFn func(ctx context.Context, event Event, data any) (any, error)

type binding struct {
	owner    string
	priority int
	fn       HookFn
}

// HookCenter routes session events to registered observers, such as the
// trade ledger and the server log. Hooks run in ascending priority; hooks
// with equal priority run in registration order.
type HookCenter struct {
	mu    sync.RWMutex
	chain map[Event][]binding
}

// NewHookCenter creates an empty HookCenter.
func NewHookCenter() *HookCenter {
	return &HookCenter{chain: make(map[Event][]binding)}
}

// Register attaches fn to event under the owner name.
func (hc *HookCenter) Register(event Event, priority int, owner string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	// chains are rebuilt, never mutated, so Trigger can iterate without a lock
	old := hc.chain[event]
	next := make([]binding, len(old), len(old)+1)
	copy(next, old)
	next = append(next, binding{owner: owner, priority: priority, fn: fn})
	sort.SliceStable(next, func(i, j int) bool { return next[i].priority < next[j].priority })
	hc.chain[event] = next
}

// Unregister detaches the hooks owner registered for event.
func (hc *HookCenter) Unregister(event Event, owner string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.detach(event, owner)
}

// UnregisterAll detaches every hook of owner.
func (hc *HookCenter) UnregisterAll(owner string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for event := range hc.chain {
		hc.detach(event, owner)
	}
}

func (hc *HookCenter) detach(event Event, owner string) {
	var kept []binding
	for _, b := range hc.chain[event] {
		if b.owner != owner {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		delete(hc.chain, event)
		return
	}
	hc.chain[event] = kept
}

// Has reports whether any hook is attached to event.
func (hc *HookCenter) Has(event Event) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return len(hc.chain[event]) > 0
}

// Trigger runs the chain for event. A hook returning ErrInterrupt stops the
// chain and the interrupt is returned. Other hook errors, panics included,
// do not stop the chain; they are joined into the returned error.
func (hc *HookCenter) Trigger(ctx context.Context, event Event, data any) (any, error) {
	hc.mu.RLock()
	chain := hc.chain[event]
	hc.mu.RUnlock()

	var errs []error
	for _, b := range chain {
		out, err := call(ctx, event, b, data)
		if errors.Is(err, ErrInterrupt) {
			return data, errors.Join(append(errs, err)...)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		data = out
	}
	return data, errors.Join(errs...)
}

func call(ctx context.Context, event Event, b binding, data any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = data, fmt.Errorf("hook %s on %s panicked: %v", b.owner, event, r)
		}
	}()
	return b.fn(ctx, event, data)
}
