package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus enumerates cylinder order states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a cylinder order. Registered users' orders live in the order
// store; guest orders are synthesized locally and never written to the
// backend.
type Order struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Status       OrderStatus `json:"status"`
	CylinderSize string      `json:"cylinder_size"`
	Quantity     int         `json:"quantity"`
	Amount       float64     `json:"amount"`
	Address      string      `json:"address"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// OrderStats summarizes a user's order history.
type OrderStats struct {
	Total      int     `json:"total"`
	Pending    int     `json:"pending"`
	Delivered  int     `json:"delivered"`
	TotalSpent float64 `json:"total_spent"`
}

// NewOrder creates a pending order for a registered user.
func NewOrder(userID, cylinderSize string, quantity int, amount float64, address string) (*Order, error) {
	if IsGuestID(userID) {
		return nil, ErrGuestOrderRefused
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("order quantity must be positive")
	}
	now := time.Now()
	return &Order{
		ID:           uuid.NewString(),
		UserID:       userID,
		Status:       OrderStatusPending,
		CylinderSize: cylinderSize,
		Quantity:     quantity,
		Amount:       amount,
		Address:      address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewGuestOrder synthesizes a local order record for a guest identity. The
// id prefix keeps it unambiguously distinguishable from store-issued ids.
func NewGuestOrder(guestID, cylinderSize string, quantity int, amount float64, address string) (*Order, error) {
	if !IsGuestID(guestID) {
		return nil, fmt.Errorf("guest order requires a guest id, got %q", guestID)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("order quantity must be positive")
	}
	now := time.Now()
	return &Order{
		ID:           fmt.Sprintf("%s%d-%s", GuestOrderIDPrefix, now.UnixMilli(), uuid.NewString()[:8]),
		UserID:       guestID,
		Status:       OrderStatusPending,
		CylinderSize: cylinderSize,
		Quantity:     quantity,
		Amount:       amount,
		Address:      address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// StatsFromOrders computes stats locally, used for guest order lists.
func StatsFromOrders(orders []Order) *OrderStats {
	stats := &OrderStats{}
	for _, o := range orders {
		stats.Total++
		switch o.Status {
		case OrderStatusPending:
			stats.Pending++
		case OrderStatusDelivered:
			stats.Delivered++
		}
		stats.TotalSpent += o.Amount
	}
	return stats
}
