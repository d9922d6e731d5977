package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(tag string, log *[]string) HookFn {
	return func(_ context.Context, _ Event, data any) (any, error) {
		*log = append(*log, tag)
		return data, nil
	}
}

func TestTrigger_EmptyChainReturnsData(t *testing.T) {
	hc := NewHookCenter()
	out, err := hc.Trigger(context.Background(), OnSessionStart, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", out)
	assert.False(t, hc.Has(OnSessionStart))
}

func TestTrigger_ChainRewritesData(t *testing.T) {
	hc := NewHookCenter()
	hc.Register(AfterDayAdvance, 0, "double", func(_ context.Context, ev Event, data any) (any, error) {
		assert.Equal(t, AfterDayAdvance, ev)
		return data.(int) * 2, nil
	})
	hc.Register(AfterDayAdvance, 1, "bonus", func(_ context.Context, _ Event, data any) (any, error) {
		return data.(int) + 10, nil
	})
	out, err := hc.Trigger(context.Background(), AfterDayAdvance, 5)
	require.NoError(t, err)
	assert.Equal(t, 20, out)
}

func TestRegister_PriorityThenRegistrationOrder(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	hc.Register(AfterCommand, 100, "ledger", pass("ledger", &order))
	hc.Register(AfterCommand, 0, "first-a", pass("first-a", &order))
	hc.Register(AfterCommand, 50, "log", pass("log", &order))
	hc.Register(AfterCommand, 0, "first-b", pass("first-b", &order))

	_, err := hc.Trigger(context.Background(), AfterCommand, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first-a", "first-b", "log", "ledger"}, order)
}

func TestTrigger_InterruptVetoes(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	hc.Register(BeforePurchase, 0, "veto", func(_ context.Context, _ Event, data any) (any, error) {
		return nil, ErrInterrupt
	})
	hc.Register(BeforePurchase, 1, "after", pass("after", &order))

	out, err := hc.Trigger(context.Background(), BeforePurchase, "listing")
	assert.ErrorIs(t, err, ErrInterrupt)
	assert.Equal(t, "listing", out)
	assert.Empty(t, order)
}

func TestTrigger_ErrorsAreJoinedAndChainContinues(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	boom := errors.New("ledger full")
	hc.Register(AfterCommand, 0, "failing", func(_ context.Context, _ Event, _ any) (any, error) {
		return "ignored", boom
	})
	hc.Register(AfterCommand, 1, "next", pass("next", &order))

	out, err := hc.Trigger(context.Background(), AfterCommand, "rec")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInterrupt)
	assert.Equal(t, "rec", out)
	assert.Equal(t, []string{"next"}, order)
}

func TestTrigger_PanicBecomesError(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	hc.Register(OnMarketEvent, 0, "broken", func(_ context.Context, _ Event, _ any) (any, error) {
		panic("nil map")
	})
	hc.Register(OnMarketEvent, 1, "log", pass("log", &order))

	_, err := hc.Trigger(context.Background(), OnMarketEvent, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"log"}, order)
}

func TestUnregister_OnlyOwnerOnEvent(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	hc.Register(OnQuestComplete, 0, "ledger", pass("ledger", &order))
	hc.Register(OnQuestComplete, 1, "log", pass("log", &order))
	hc.Register(OnSessionEnd, 0, "ledger", pass("ledger-end", &order))

	hc.Unregister(OnQuestComplete, "ledger")
	_, _ = hc.Trigger(context.Background(), OnQuestComplete, nil)
	_, _ = hc.Trigger(context.Background(), OnSessionEnd, nil)
	assert.Equal(t, []string{"log", "ledger-end"}, order)
}

func TestUnregisterAll_DropsEveryEventOfOwner(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	hc.Register(OnSessionStart, 0, "ledger", pass("start", &order))
	hc.Register(OnSessionEnd, 0, "ledger", pass("end", &order))
	hc.Register(OnSessionEnd, 1, "log", pass("log", &order))

	hc.UnregisterAll("ledger")
	assert.False(t, hc.Has(OnSessionStart))
	assert.True(t, hc.Has(OnSessionEnd))

	_, _ = hc.Trigger(context.Background(), OnSessionStart, nil)
	_, _ = hc.Trigger(context.Background(), OnSessionEnd, nil)
	assert.Equal(t, []string{"log"}, order)
}

func TestTrigger_RegisterFromHookDoesNotDeadlock(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	hc.Register(OnLootBoxReveal, 0, "once", func(_ context.Context, _ Event, data any) (any, error) {
		hc.Unregister(OnLootBoxReveal, "once")
		hc.Register(OnLootBoxReveal, 0, "later", pass("later", &order))
		return data, nil
	})

	_, err := hc.Trigger(context.Background(), OnLootBoxReveal, nil)
	require.NoError(t, err)
	assert.Empty(t, order)

	_, err = hc.Trigger(context.Background(), OnLootBoxReveal, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"later"}, order)
}

func TestEventsAreDistinct(t *testing.T) {
	events := []Event{
		OnSessionStart, OnSessionEnd, BeforePurchase, AfterCommand,
		AfterDayAdvance, OnQuestComplete, OnMarketEvent, OnLootBoxReveal,
	}
	seen := map[Event]bool{}
	for _, e := range events {
		assert.NotEmpty(t, e)
		assert.False(t, seen[e], "duplicate event %q", e)
		seen[e] = true
	}
}
