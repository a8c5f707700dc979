// Package redis keeps per-user checkout state, carts and fallback orders
// in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:"

// cmdable is the part of [goredis.Cmdable] the stores use.
type cmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *goredis.StringSliceCmd
	TxPipelined(ctx context.Context, fn func(goredis.Pipeliner) error) ([]goredis.Cmder, error)
}

type Config struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

type Client struct {
	*goredis.Client
}

func NewClient(ctx context.Context, cfg Config) (Client, error) {
	const op = "redis.NewClient"
	log := slog.With("op", op)

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return Client{}, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	cl := goredis.NewClient(opts)
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return Client{}, fmt.Errorf("%s: redis is unavailable: %w", op, err)
	}

	log.Info("redis is available")
	return Client{cl}, nil
}

func (c Client) Close() {
	const op = "redis.Client.Close"
	log := slog.With("op", op)

	log.Info("closing redis client...")
	if err := c.Client.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("redis client is closed")
}

func isNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}
