package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"session-hub/app/cachekeys"
	"session-hub/app/domain"
	"session-hub/app/port"
)

// MessageUC implements port.MessageUsecase. Guests have no server-side
// mailbox and always see an empty one.
type MessageUC struct {
	store    port.MessageStore
	cache    port.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewMessageUsecase creates a new MessageUC instance.
func NewMessageUsecase(store port.MessageStore, cache port.Cache, cacheTTL time.Duration, logger *slog.Logger) *MessageUC {
	return &MessageUC{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "message_usecase"),
	}
}

// List returns the user's support messages, newest first.
func (uc *MessageUC) List(ctx context.Context, userID string) ([]domain.Message, error) {
	if domain.IsGuestID(userID) {
		return nil, nil
	}

	key := cachekeys.Messages(userID)
	if data, ok := uc.cache.Get(ctx, key); ok {
		var messages []domain.Message
		if err := json.Unmarshal(data, &messages); err == nil {
			return messages, nil
		}
		uc.cache.Invalidate(ctx, key)
	}

	messages, err := uc.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(messages); err == nil {
		uc.cache.Set(ctx, key, data, uc.cacheTTL)
	}
	return messages, nil
}

// UnreadCount returns how many of the user's messages are unread.
func (uc *MessageUC) UnreadCount(ctx context.Context, userID string) (int, error) {
	if domain.IsGuestID(userID) {
		return 0, nil
	}

	key := cachekeys.MessagesUnread(userID)
	if data, ok := uc.cache.Get(ctx, key); ok {
		if count, err := strconv.Atoi(string(data)); err == nil {
			return count, nil
		}
		uc.cache.Invalidate(ctx, key)
	}

	count, err := uc.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	uc.cache.Set(ctx, key, []byte(strconv.Itoa(count)), uc.cacheTTL)
	return count, nil
}
