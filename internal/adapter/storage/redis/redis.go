package redis

import (
	"context"
	"fmt"

	"async-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// clientOptions maps the ledger's Redis settings onto go-redis. Zero values
// keep the go-redis defaults.
func clientOptions(cfg config.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewClient connects to the Redis instance holding the account projection
// and the rate limit counters. Nothing in Redis is authoritative: balances are
// always settled and read back from Postgres, so the cache can be flushed at
// any time. An unreachable Redis at startup is still an error, which callers
// decide whether to tolerate.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(clientOptions(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Int("pool_size", cfg.PoolSize).
		Dur("read_timeout", cfg.ReadTimeout).
		Msg("Account cache connected")

	return client, nil
}
