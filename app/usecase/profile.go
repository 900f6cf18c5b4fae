package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"session-hub/app/cachekeys"
	"session-hub/app/domain"
	"session-hub/app/port"
)

// ProfileUC implements port.ProfileUsecase with a read-through cache over
// the profile store.
type ProfileUC struct {
	store    port.ProfileStore
	cache    port.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewProfileUsecase creates a new ProfileUC instance.
func NewProfileUsecase(store port.ProfileStore, cache port.Cache, cacheTTL time.Duration, logger *slog.Logger) *ProfileUC {
	return &ProfileUC{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "profile_usecase"),
	}
}

// Get returns the user's profile. Guests have no profile row.
func (uc *ProfileUC) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if domain.IsGuestID(userID) {
		return nil, domain.ErrProfileNotFound
	}

	key := cachekeys.Profile(userID)
	if data, ok := uc.cache.Get(ctx, key); ok {
		profile := &domain.Profile{}
		if err := json.Unmarshal(data, profile); err == nil {
			return profile, nil
		}
		uc.cache.Invalidate(ctx, key)
	}

	profile, err := uc.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		uc.cache.Set(ctx, key, data, uc.cacheTTL)
	}
	return profile, nil
}

// Update writes the profile row and drops the derived cache entries that
// embed profile fields.
func (uc *ProfileUC) Update(ctx context.Context, profile *domain.Profile) error {
	if domain.IsGuestID(profile.ID) {
		return domain.ErrProfileNotFound
	}

	if err := uc.store.Upsert(ctx, profile); err != nil {
		return err
	}

	uc.cache.Invalidate(ctx, cachekeys.Profile(profile.ID))
	// The identity projection embeds the display name.
	uc.cache.Invalidate(ctx, cachekeys.AuthUser())

	uc.logger.Info("profile updated", "user_id", profile.ID)
	return nil
}
