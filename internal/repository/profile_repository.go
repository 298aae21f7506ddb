package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/creator-service/internal/domain"
)

// ProfileRepository is the profile store consumed by onboarding.
// LoadProfile returns (nil, nil) when no profile exists yet; MergeProfile
// upserts and tolerates being called twice with identical fields.
type ProfileRepository interface {
	LoadProfile(ctx context.Context, identityID string) (*domain.Profile, error)
	MergeProfile(ctx context.Context, identityID string, fields domain.ProfileFields) (*domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) LoadProfile(ctx context.Context, identityID string) (*domain.Profile, error) {
	const query = `
        SELECT identity_id, display_name, handle, bio, statement, location, links, created_at, updated_at
        FROM artist_profiles WHERE identity_id=$1`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, identityID).Scan(
		&profile.IdentityID,
		&profile.DisplayName,
		&profile.Handle,
		&profile.Bio,
		&profile.Statement,
		&profile.Location,
		&profile.Links,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) MergeProfile(ctx context.Context, identityID string, fields domain.ProfileFields) (*domain.Profile, error) {
	const query = `
        INSERT INTO artist_profiles (identity_id, display_name, handle, bio, statement, location, links)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (identity_id) DO UPDATE SET
            display_name=EXCLUDED.display_name,
            handle=EXCLUDED.handle,
            bio=EXCLUDED.bio,
            statement=EXCLUDED.statement,
            location=EXCLUDED.location,
            links=EXCLUDED.links,
            updated_at=NOW()
        RETURNING identity_id, display_name, handle, bio, statement, location, links, created_at, updated_at`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query,
		identityID,
		fields.DisplayName,
		fields.Handle,
		fields.Bio,
		fields.Statement,
		fields.Location,
		fields.Links,
	).Scan(
		&profile.IdentityID,
		&profile.DisplayName,
		&profile.Handle,
		&profile.Bio,
		&profile.Statement,
		&profile.Location,
		&profile.Links,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
