package cache

import (
	"context"
	"time"

	"github.com/kasuganosora/platemarket/cache/local"
	cacheredis "github.com/kasuganosora/platemarket/cache/redis"
)

// Cache holds session tokens and short notification histories.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// PushRecent prepends value to the list at key, keeps only the newest
	// keep entries and refreshes the list ttl.
	PushRecent(ctx context.Context, key, value string, keep int, ttl time.Duration) error
	// Recent returns the list at key, newest first.
	Recent(ctx context.Context, key string) ([]string, error)
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub fans notifications out to every live transport of a session.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and the local backend.
type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

func (cfg CacheConfig) redis() cacheredis.Config {
	return cacheredis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// NewCache returns a Redis cache when RedisAddr is set, otherwise an
// in-process one.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cfg.redis())
	}
	return local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval}), nil
}

// NewPubSub returns a Redis pub/sub when RedisAddr is set, otherwise an
// in-process broker.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cfg.redis())
		if err != nil {
			return nil, err
		}
		return pubsubBridge[cacheredis.Message]{ps: rps, conv: fromRedis}, nil
	}
	bufSize := cfg.LocalPubSubBuf
	if bufSize <= 0 {
		bufSize = 256
	}
	return pubsubBridge[local.Message]{ps: local.NewPubSub(bufSize), conv: fromLocal}, nil
}

func fromRedis(m *cacheredis.Message) *Message { return &Message{Channel: m.Channel, Payload: m.Payload} }
func fromLocal(m *local.Message) *Message      { return &Message{Channel: m.Channel, Payload: m.Payload} }

type backendPubSub[M any] interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *M, func(), error)
}

// pubsubBridge converts backend messages into cache.Message.
type pubsubBridge[M any] struct {
	ps   backendPubSub[M]
	conv func(*M) *Message
}

func (b pubsubBridge[M]) Publish(ctx context.Context, channel, message string) error {
	return b.ps.Publish(ctx, channel, message)
}

func (b pubsubBridge[M]) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := b.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *Message, cap(in))
	go func() {
		defer close(out)
		for msg := range in {
			out <- b.conv(msg)
		}
	}()
	return out, cancel, nil
}
