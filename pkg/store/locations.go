package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// SetLocation upserts the user's current location. The store persists the
// string as given; callers are expected to lower-case it.
func (s *Store) SetLocation(ctx context.Context, userID, location string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_locations (user_id, location)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET location = EXCLUDED.location
	`, userID, location)
	if err != nil {
		return wrapDBErr("setting location", err)
	}
	return nil
}

// GetLocation returns the user's current location. The second return value is
// false when the user has never set a location; that is not an error.
func (s *Store) GetLocation(ctx context.Context, userID string) (string, bool, error) {
	var location string
	err := s.pool.QueryRow(ctx,
		`SELECT location FROM user_locations WHERE user_id = $1`,
		userID,
	).Scan(&location)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapDBErr("getting location", err)
	}
	return location, true, nil
}
