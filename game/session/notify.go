package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/platemarket/cache"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a transient message for the presentation layer.
type Notification struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// Notifier delivers notifications of one session.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, n Notification) error
}

// AnnounceChannel carries admin broadcasts to every session.
const AnnounceChannel = "announce"

// NotifyChannel returns the pub/sub channel of a session's notifications.
func NotifyChannel(sessionID string) string {
	return "notify:" + sessionID
}

func historyKey(sessionID string) string {
	return "notify_history:" + sessionID
}

// CacheNotifier publishes notifications on the session channel and keeps
// the most recent ones in a cache list for polling clients.
type CacheNotifier struct {
	cache   cache.Cache
	pubsub  cache.PubSub
	history int
	ttl     time.Duration
}

// NewCacheNotifier creates a CacheNotifier keeping up to history entries
// per session for ttl.
func NewCacheNotifier(c cache.Cache, ps cache.PubSub, history int, ttl time.Duration) *CacheNotifier {
	if history <= 0 {
		history = 20
	}
	return &CacheNotifier{cache: c, pubsub: ps, history: history, ttl: ttl}
}

// Notify implements Notifier.
func (cn *CacheNotifier) Notify(ctx context.Context, sessionID string, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := cn.cache.PushRecent(ctx, historyKey(sessionID), string(data), cn.history, cn.ttl); err != nil {
		return err
	}
	return cn.pubsub.Publish(ctx, NotifyChannel(sessionID), string(data))
}

// History returns the stored notifications, newest first.
func (cn *CacheNotifier) History(ctx context.Context, sessionID string) ([]Notification, error) {
	raw, err := cn.cache.Recent(ctx, historyKey(sessionID))
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(r), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Forget drops the stored history of a session.
func (cn *CacheNotifier) Forget(ctx context.Context, sessionID string) error {
	return cn.cache.Del(ctx, historyKey(sessionID))
}
