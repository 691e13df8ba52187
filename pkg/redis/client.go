// Package redis wraps go-redis with the key layout and primitives the sweeper
// locks and the outbox relay rely on.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

const keyNamespace = "serialstock"

var errNotConnected = errors.New("redis: client not initialized")

// unlockScript deletes KEYS[1] only while it still holds ARGV[1].
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Client is the narrow Redis surface used by the service.
type Client struct {
	cmds   commands
	closer func() error
}

// New dials Redis from cfg and pings it.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "db": opts.DB}), "redis connection established")
	}
	return &Client{cmds: rdb, closer: rdb.Close}, nil
}

// options prefers URL over Address. Pool and timeout settings from cfg fill
// whatever the URL left unset.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: strings.TrimSpace(cfg.Address), Password: cfg.Password, DB: cfg.DB}
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
	}
	if opts.Addr == "" {
		return nil, errors.New("redis: url or address is required")
	}
	fill := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	return opts, nil
}

// TryLock claims key for owner until ttl lapses. It reports false when another owner holds it.
func (c *Client) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if c.cmds == nil {
		return false, errNotConnected
	}
	return c.cmds.SetNX(ctx, key, owner, ttl).Result()
}

// Unlock releases key if owner still holds it and reports whether it did.
func (c *Client) Unlock(ctx context.Context, key, owner string) (bool, error) {
	if c.cmds == nil {
		return false, errNotConnected
	}
	deleted, err := c.cmds.Eval(ctx, unlockScript, []string{key}, owner).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: unlock %s: %w", key, err)
	}
	return deleted == 1, nil
}

// XAdd appends fields to stream. A positive maxLen trims the stream to roughly
// that many entries. It returns the entry id Redis assigned.
func (c *Client) XAdd(ctx context.Context, stream string, maxLen int64, fields map[string]any) (string, error) {
	if c.cmds == nil {
		return "", errNotConnected
	}
	a := &redis.XAddArgs{Stream: stream, Values: fields}
	if maxLen > 0 {
		a.MaxLen, a.Approx = maxLen, true
	}
	return c.cmds.XAdd(ctx, a).Result()
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmds == nil {
		return errNotConnected
	}
	return c.cmds.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// StreamKey names the relay stream for an aggregate type.
func (c *Client) StreamKey(aggregate string) string { return Key("events", aggregate) }

// LockKey names the lock guarding a sweeper.
func (c *Client) LockKey(name string) string { return Key("lock", name) }

// Key joins non-blank parts under the service namespace.
func Key(parts ...string) string {
	segments := []string{keyNamespace}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, ":")
}
