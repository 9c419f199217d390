package ports

//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks

import (
	"context"
	"time"

	"async-ledger/internal/core/domain"
)

// AccountCache is the disposable read projection of accounts.
type AccountCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, ownerID, accountID int64) (*domain.Account, error)
	Set(ctx context.Context, account *domain.Account, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}
