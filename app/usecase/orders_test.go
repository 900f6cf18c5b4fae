package usecase

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-hub/app/cachekeys"
	"session-hub/app/domain"
)

func newTestOrderUC(t *testing.T) (*OrderUC, *fakeOrderStore, *fakeCache) {
	t.Helper()
	store := newFakeOrderStore()
	cache := newFakeCache()
	uc := NewOrderUsecase(store, cache, time.Minute, slog.Default())
	return uc, store, cache
}

func TestOrderUC_CreateRegistered(t *testing.T) {
	uc, store, cache := newTestOrderUC(t)
	ctx := context.Background()

	cache.Set(ctx, cachekeys.Orders("user-1"), []byte(`stale`), time.Minute)
	cache.Set(ctx, cachekeys.OrderStats("user-1"), []byte(`stale`), time.Minute)

	order, err := uc.Create(ctx, "user-1", "12kg", 2, 18000, "12 Gas Lane")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(order.ID, domain.GuestOrderIDPrefix))

	// The write lands in the store and drops the stale views.
	stored, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.False(t, cache.has(cachekeys.Orders("user-1")))
	assert.False(t, cache.has(cachekeys.OrderStats("user-1")))
}

func TestOrderUC_GuestOrdersStayLocal(t *testing.T) {
	uc, store, _ := newTestOrderUC(t)
	ctx := context.Background()

	guest := domain.NewGuestIdentity()

	order, err := uc.Create(ctx, guest.ID, "6kg", 1, 9000, "12 Gas Lane")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.ID, domain.GuestOrderIDPrefix))
	assert.Equal(t, guest.ID, order.UserID)

	// Local only: nothing reached the store.
	store.mu.Lock()
	assert.Empty(t, store.orders)
	store.mu.Unlock()

	orders, err := uc.List(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	stats, err := uc.Stats(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 9000.0, stats.TotalSpent)
}

func TestOrderUC_ListReadsThroughCache(t *testing.T) {
	uc, store, cache := newTestOrderUC(t)
	ctx := context.Background()

	_, err := uc.Create(ctx, "user-1", "12kg", 1, 9000, "12 Gas Lane")
	require.NoError(t, err)

	first, err := uc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, cache.has(cachekeys.Orders("user-1")))

	// Second read is served from the cache.
	store.mu.Lock()
	callsAfterFirst := store.listCalls
	store.mu.Unlock()

	second, err := uc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	store.mu.Lock()
	assert.Equal(t, callsAfterFirst, store.listCalls)
	store.mu.Unlock()
}

func TestOrderUC_DropGuest(t *testing.T) {
	uc, _, _ := newTestOrderUC(t)
	ctx := context.Background()

	guest := domain.NewGuestIdentity()
	_, err := uc.Create(ctx, guest.ID, "6kg", 1, 9000, "12 Gas Lane")
	require.NoError(t, err)

	uc.DropGuest(guest.ID)

	orders, err := uc.List(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
