package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"session-hub/app/domain"
	"session-hub/app/port"
)

// ProfileRepository implements port.ProfileStore for PostgreSQL
type ProfileRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(db DatabaseIface, logger *slog.Logger) port.ProfileStore {
	return &ProfileRepository{
		db:     db,
		logger: logger.With("component", "profile_repository"),
	}
}

// Get retrieves a profile row by the provider subject id.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT id, first_name, last_name, phone, address, updated_at
		FROM profiles
		WHERE id = $1`

	profile := &domain.Profile{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.FirstName,
		&profile.LastName,
		&profile.Phone,
		&profile.Address,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		r.logger.Error("failed to get profile", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// Upsert writes a profile row, creating it when missing. Upsert rather than
// insert: the row may already exist when a confirmed email signs in on a new
// device.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, first_name, last_name, phone, address, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		profile.ID,
		profile.FirstName,
		profile.LastName,
		profile.Phone,
		profile.Address,
	)
	if err != nil {
		r.logger.Error("failed to upsert profile", "user_id", profile.ID, "error", err)
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	r.logger.Debug("profile upserted", "user_id", profile.ID)
	return nil
}
