package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"async-ledger/internal/core/domain"
	"async-ledger/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testAccountTTL = 24 * time.Hour

type accountTestDeps struct {
	svc         *AccountServiceImpl
	accountRepo *mocks.MockAccountRepository
	cache       *mocks.MockAccountCache
}

func setupAccountService(t *testing.T) *accountTestDeps {
	ctrl := gomock.NewController(t)
	d := &accountTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		cache:       mocks.NewMockAccountCache(ctrl),
	}
	d.svc = NewAccountService(d.accountRepo, d.cache, testAccountTTL, zerolog.Nop())
	return d
}

func TestAccountService_GetAccount_CacheHit(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()
	cached := activeAccount(10, testOwnerID, "80")

	d.cache.EXPECT().Get(ctx, testOwnerID, int64(10)).Return(cached, nil)

	got, err := d.svc.GetAccount(ctx, testOwnerID, 10)
	require.NoError(t, err)
	assert.Same(t, cached, got)
}

func TestAccountService_GetAccount_CacheMissFills(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()
	acc := activeAccount(10, testOwnerID, "80")

	d.cache.EXPECT().Get(ctx, testOwnerID, int64(10)).Return(nil, nil)
	d.accountRepo.EXPECT().GetByID(ctx, int64(10)).Return(acc, nil)
	d.cache.EXPECT().Set(ctx, acc, testAccountTTL).Return(nil)

	got, err := d.svc.GetAccount(ctx, testOwnerID, 10)
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestAccountService_GetAccount_CacheDownFallsThrough(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()
	acc := activeAccount(10, testOwnerID, "80")

	d.cache.EXPECT().Get(ctx, testOwnerID, int64(10)).Return(nil, errors.New("redis down"))
	d.accountRepo.EXPECT().GetByID(ctx, int64(10)).Return(acc, nil)
	d.cache.EXPECT().Set(ctx, acc, testAccountTTL).Return(errors.New("redis down"))

	got, err := d.svc.GetAccount(ctx, testOwnerID, 10)
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestAccountService_GetAccount_NotOwned(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()

	d.cache.EXPECT().Get(ctx, testOwnerID, int64(10)).Return(nil, nil)
	d.accountRepo.EXPECT().GetByID(ctx, int64(10)).Return(activeAccount(10, 99, "1"), nil)

	got, err := d.svc.GetAccount(ctx, testOwnerID, 10)
	assert.Nil(t, got)
	assertAppError(t, err, "NF_001")
}

func TestAccountService_GetAccount_NotFound(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()

	d.cache.EXPECT().Get(ctx, testOwnerID, int64(10)).Return(nil, nil)
	d.accountRepo.EXPECT().GetByID(ctx, int64(10)).Return(nil, nil)

	_, err := d.svc.GetAccount(ctx, testOwnerID, 10)
	assertAppError(t, err, "NF_001")
}

func TestAccountService_GetAccount_DBError(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()

	d.cache.EXPECT().Get(ctx, testOwnerID, int64(10)).Return(nil, nil)
	d.accountRepo.EXPECT().GetByID(ctx, int64(10)).Return(nil, errors.New("timeout"))

	_, err := d.svc.GetAccount(ctx, testOwnerID, 10)
	assertAppError(t, err, "SYS_001")
}

func TestAccountService_ListAccounts(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()
	want := []domain.Account{*activeAccount(10, testOwnerID, "1"), *activeAccount(12, testOwnerID, "2")}

	d.accountRepo.EXPECT().ListByOwner(ctx, testOwnerID).Return(want, nil)

	got, err := d.svc.ListAccounts(ctx, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAccountService_ListTransferTargets(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()
	want := []domain.Account{*activeAccount(11, 30, "0")}

	d.accountRepo.EXPECT().GetByID(ctx, int64(10)).Return(activeAccount(10, testOwnerID, "1"), nil)
	d.accountRepo.EXPECT().ListTransferTargets(ctx, int64(10)).Return(want, nil)

	got, err := d.svc.ListTransferTargets(ctx, testOwnerID, 10)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAccountService_ListTransferTargets_ForeignAccount(t *testing.T) {
	d := setupAccountService(t)
	ctx := context.Background()

	d.accountRepo.EXPECT().GetByID(ctx, int64(10)).Return(nil, nil)

	_, err := d.svc.ListTransferTargets(ctx, testOwnerID, 10)
	assertAppError(t, err, "NF_001")
}
