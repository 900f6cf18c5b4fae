package port

import (
	"context"

	"session-hub/app/domain"
)

// ProfileStore reads and writes profile rows keyed by the provider subject
// id. Upsert must succeed whether or not the row pre-exists.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// OrderStore is the backing store for registered users' orders. Guest ids
// must never reach it.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	StatsByUser(ctx context.Context, userID string) (*domain.OrderStats, error)
}

// MessageStore lists a user's support messages.
type MessageStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Message, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}
