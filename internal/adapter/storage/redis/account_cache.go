package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"async-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// AccountCache implements ports.AccountCache: a JSON projection of accounts keyed
// by domain.AccountCacheKey. It is never a source of truth.
type AccountCache struct {
	client goredis.UniversalClient
}

// NewAccountCache creates a new Redis-backed account projection.
func NewAccountCache(client goredis.UniversalClient) *AccountCache {
	return &AccountCache{client: client}
}

// Get returns the cached account, or nil, nil on a miss.
func (c *AccountCache) Get(ctx context.Context, ownerID, accountID int64) (*domain.Account, error) {
	val, err := c.client.Get(ctx, domain.AccountCacheKey(ownerID, accountID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis account get: %w", err)
	}

	var a domain.Account
	if err := json.Unmarshal(val, &a); err != nil {
		return nil, fmt.Errorf("decode cached account: %w", err)
	}
	return &a, nil
}

// Set stores the account projection with TTL.
func (c *AccountCache) Set(ctx context.Context, a *domain.Account, ttl time.Duration) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := c.client.Set(ctx, domain.AccountCacheKey(a.OwnerID, a.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis account set: %w", err)
	}
	return nil
}

// Invalidate removes the given keys. Missing keys are not an error.
func (c *AccountCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis account invalidate: %w", err)
	}
	return nil
}
