package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/creator-service/internal/domain"
)

// ErrRedeemConflict is returned when a redeem loses the conditional write,
// meaning some call (usually a resubmission of the same one) already won.
var ErrRedeemConflict = errors.New("invite already redeemed")

// InviteRepository defines persistence access for invites. Invites are
// issued by the admin tooling; this service only reads and redeems them.
type InviteRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Invite, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Redeem(ctx context.Context, id, identityID string, at time.Time) error
}

type inviteRepository struct {
	pool *pgxpool.Pool
}

// NewInviteRepository returns a Postgres-backed implementation.
func NewInviteRepository(pool *pgxpool.Pool) InviteRepository {
	return &inviteRepository{pool: pool}
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	const query = `
        SELECT id, email, status, issued_at, expires_at, last_accessed_at, redeemed_at, redeemed_by
        FROM invites WHERE id=$1`

	var invite domain.Invite
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&invite.ID,
		&invite.Email,
		&invite.Status,
		&invite.IssuedAt,
		&invite.ExpiresAt,
		&invite.LastAccessedAt,
		&invite.RedeemedAt,
		&invite.RedeemedBy,
	); err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *inviteRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE invites SET last_accessed_at=$2 WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

// Redeem performs the at-most-once terminal write. The status predicate
// makes it a compare-and-set: concurrent calls on the same invite see
// exactly one row updated, the rest get ErrRedeemConflict.
func (r *inviteRepository) Redeem(ctx context.Context, id, identityID string, at time.Time) error {
	const query = `
        UPDATE invites SET status=$2, redeemed_at=$3, redeemed_by=$4
        WHERE id=$1 AND status=$5`

	cmd, err := r.pool.Exec(ctx, query,
		id,
		domain.InviteStatusRedeemed,
		at,
		identityID,
		domain.InviteStatusPending,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// distinguish missing invite from lost race
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return pgx.ErrNoRows
			}
			return getErr
		}
		return ErrRedeemConflict
	}
	return nil
}
