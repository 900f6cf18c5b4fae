package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"session-hub/app/domain"
	"session-hub/app/port"
)

// OrderRepository implements port.OrderStore for PostgreSQL. Guest ids are
// rejected before any SQL runs; locally synthesized guest orders must never
// land in the backend.
type OrderRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(db DatabaseIface, logger *slog.Logger) port.OrderStore {
	return &OrderRepository{
		db:     db,
		logger: logger.With("component", "order_repository"),
	}
}

// Create inserts a new order row.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if domain.IsGuestID(order.UserID) {
		r.logger.Warn("refusing to persist guest order", "user_id", order.UserID)
		return domain.ErrGuestOrderRefused
	}

	query := `
		INSERT INTO orders (id, user_id, status, cylinder_size, quantity, amount, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.CylinderSize,
		order.Quantity,
		order.Amount,
		order.Address,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create order", "order_id", order.ID, "user_id", order.UserID, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Info("order created", "order_id", order.ID, "user_id", order.UserID)
	return nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if domain.IsGuestID(userID) {
		return nil, domain.ErrGuestOrderRefused
	}

	query := `
		SELECT id, user_id, status, cylinder_size, quantity, amount, address, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list orders", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.CylinderSize,
			&o.Quantity,
			&o.Amount,
			&o.Address,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	return orders, nil
}

// StatsByUser aggregates order counts and spend in the database.
func (r *OrderRepository) StatsByUser(ctx context.Context, userID string) (*domain.OrderStats, error) {
	if domain.IsGuestID(userID) {
		return nil, domain.ErrGuestOrderRefused
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COALESCE(SUM(amount), 0)
		FROM orders
		WHERE user_id = $1`

	stats := &domain.OrderStats{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Delivered,
		&stats.TotalSpent,
	)
	if err != nil {
		r.logger.Error("failed to get order stats", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get order stats: %w", err)
	}

	return stats, nil
}
