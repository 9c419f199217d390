package redis

import (
	"context"
	"testing"
	"time"

	"async-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccountCache(t *testing.T) (*AccountCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAccountCache(client), s
}

func sampleAccount() *domain.Account {
	return &domain.Account{
		ID:          10,
		OwnerID:     7,
		Available:   decimal.RequireFromString("150.25"),
		Reserved:    decimal.RequireFromString("20.00"),
		CreditLimit: decimal.RequireFromString("100"),
		Status:      domain.AccountStatusActive,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestAccountCache_Miss(t *testing.T) {
	cache, _ := newTestAccountCache(t)

	a, err := cache.Get(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestAccountCache_SetThenGet(t *testing.T) {
	cache, s := newTestAccountCache(t)
	ctx := context.Background()
	acc := sampleAccount()

	require.NoError(t, cache.Set(ctx, acc, time.Hour))

	assert.True(t, s.Exists("Account:7:10"))
	assert.Equal(t, time.Hour, s.TTL("Account:7:10"))

	got, err := cache.Get(ctx, 7, 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, acc.OwnerID, got.OwnerID)
	assert.True(t, acc.Available.Equal(got.Available))
	assert.True(t, acc.Reserved.Equal(got.Reserved))
	assert.Equal(t, domain.AccountStatusActive, got.Status)
}

func TestAccountCache_EntryExpires(t *testing.T) {
	cache, s := newTestAccountCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleAccount(), time.Minute))
	s.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, 7, 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountCache_Invalidate(t *testing.T) {
	cache, s := newTestAccountCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleAccount(), time.Hour))
	other := sampleAccount()
	other.ID = 11
	require.NoError(t, cache.Set(ctx, other, time.Hour))

	require.NoError(t, cache.Invalidate(ctx, domain.AccountCacheKey(7, 10), domain.AccountCacheKey(7, 99)))

	assert.False(t, s.Exists("Account:7:10"))
	assert.True(t, s.Exists("Account:7:11"))
}

func TestAccountCache_InvalidateNoKeys(t *testing.T) {
	cache, _ := newTestAccountCache(t)
	assert.NoError(t, cache.Invalidate(context.Background()))
}

func TestAccountCache_CorruptEntry(t *testing.T) {
	cache, s := newTestAccountCache(t)
	require.NoError(t, s.Set("Account:7:10", "{not json"))

	got, err := cache.Get(context.Background(), 7, 10)
	assert.Nil(t, got)
	assert.Error(t, err)
}

func TestAccountCache_RedisDown(t *testing.T) {
	cache, s := newTestAccountCache(t)
	s.Close()

	_, err := cache.Get(context.Background(), 7, 10)
	assert.Error(t, err)
	assert.Error(t, cache.Invalidate(context.Background(), "Account:7:10"))
}

func TestHealthCheck(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	s.Close()
	assert.Error(t, hc.Ping(context.Background()))
}
