package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"session-hub/app/cachekeys"
	"session-hub/app/domain"
	"session-hub/app/port"
)

// OrderUC implements port.OrderUsecase. Registered users' orders live in the
// order store behind a read-through cache; guest orders are synthesized
// locally and never leave the process.
type OrderUC struct {
	store    port.OrderStore
	cache    port.Cache
	cacheTTL time.Duration
	logger   *slog.Logger

	guestMu     sync.RWMutex
	guestOrders map[string][]domain.Order
}

// NewOrderUsecase creates a new OrderUC instance.
func NewOrderUsecase(store port.OrderStore, cache port.Cache, cacheTTL time.Duration, logger *slog.Logger) *OrderUC {
	return &OrderUC{
		store:       store,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With("component", "order_usecase"),
		guestOrders: make(map[string][]domain.Order),
	}
}

// Create places an order. Guest ids get a locally synthesized order with the
// guest-order prefix; registered ids go to the store.
func (uc *OrderUC) Create(ctx context.Context, userID, cylinderSize string, quantity int, amount float64, address string) (*domain.Order, error) {
	if domain.IsGuestID(userID) {
		order, err := domain.NewGuestOrder(userID, cylinderSize, quantity, amount, address)
		if err != nil {
			return nil, err
		}
		uc.guestMu.Lock()
		uc.guestOrders[userID] = append(uc.guestOrders[userID], *order)
		uc.guestMu.Unlock()

		uc.logger.Info("guest order synthesized", "order_id", order.ID, "guest_id", userID)
		return order, nil
	}

	order, err := domain.NewOrder(userID, cylinderSize, quantity, amount, address)
	if err != nil {
		return nil, err
	}
	if err := uc.store.Create(ctx, order); err != nil {
		return nil, err
	}

	// The user's order views are stale now.
	uc.cache.Invalidate(ctx, cachekeys.Orders(userID))
	uc.cache.Invalidate(ctx, cachekeys.OrderStats(userID))

	return order, nil
}

// List returns the user's orders, newest first.
func (uc *OrderUC) List(ctx context.Context, userID string) ([]domain.Order, error) {
	if domain.IsGuestID(userID) {
		uc.guestMu.RLock()
		defer uc.guestMu.RUnlock()
		return append([]domain.Order(nil), uc.guestOrders[userID]...), nil
	}

	key := cachekeys.Orders(userID)
	if data, ok := uc.cache.Get(ctx, key); ok {
		var orders []domain.Order
		if err := json.Unmarshal(data, &orders); err == nil {
			return orders, nil
		}
		uc.cache.Invalidate(ctx, key)
	}

	orders, err := uc.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(orders); err == nil {
		uc.cache.Set(ctx, key, data, uc.cacheTTL)
	}
	return orders, nil
}

// Stats summarizes the user's order history.
func (uc *OrderUC) Stats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	if domain.IsGuestID(userID) {
		uc.guestMu.RLock()
		defer uc.guestMu.RUnlock()
		return domain.StatsFromOrders(uc.guestOrders[userID]), nil
	}

	key := cachekeys.OrderStats(userID)
	if data, ok := uc.cache.Get(ctx, key); ok {
		stats := &domain.OrderStats{}
		if err := json.Unmarshal(data, stats); err == nil {
			return stats, nil
		}
		uc.cache.Invalidate(ctx, key)
	}

	stats, err := uc.store.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		uc.cache.Set(ctx, key, data, uc.cacheTTL)
	}
	return stats, nil
}

// DropGuest discards a guest's local orders, used when the guest session
// ends without promotion.
func (uc *OrderUC) DropGuest(guestID string) {
	uc.guestMu.Lock()
	delete(uc.guestOrders, guestID)
	uc.guestMu.Unlock()
}
