package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/creator-service/internal/domain"
)

// ErrStaleAccount is returned when a status write loses the conditional
// update, meaning a concurrent reconcile changed the row first.
var ErrStaleAccount = errors.New("activation account changed concurrently")

// ErrAccountExists is returned when a create loses to a concurrent one for
// the same identity.
var ErrAccountExists = errors.New("activation account already exists")

// ActivationRepository encapsulates payment-account record persistence.
type ActivationRepository interface {
	GetByIdentity(ctx context.Context, identityID string) (*domain.ActivationAccount, error)
	GetByAccountID(ctx context.Context, accountID string) (*domain.ActivationAccount, error)
	Create(ctx context.Context, account *domain.ActivationAccount) error
	Update(ctx context.Context, account *domain.ActivationAccount, expected domain.ActivationStatus) error
	ListUnresolved(ctx context.Context, limit int) ([]domain.ActivationAccount, error)
}

type activationRepository struct {
	pool *pgxpool.Pool
}

// NewActivationRepository returns a Postgres-backed implementation.
func NewActivationRepository(pool *pgxpool.Pool) ActivationRepository {
	return &activationRepository{pool: pool}
}

const activationColumns = `identity_id, account_id, status, charges_enabled, payouts_enabled, onboarding_url, raw_status, created_at, updated_at`

func (r *activationRepository) GetByIdentity(ctx context.Context, identityID string) (*domain.ActivationAccount, error) {
	const query = `
        SELECT ` + activationColumns + `
        FROM activation_accounts WHERE identity_id=$1`
	return r.fetchSingle(ctx, query, identityID)
}

func (r *activationRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.ActivationAccount, error) {
	const query = `
        SELECT ` + activationColumns + `
        FROM activation_accounts WHERE account_id=$1`
	return r.fetchSingle(ctx, query, accountID)
}

func (r *activationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ActivationAccount, error) {
	var account domain.ActivationAccount
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.IdentityID,
		&account.AccountID,
		&account.Status,
		&account.ChargesEnabled,
		&account.PayoutsEnabled,
		&account.OnboardingURL,
		&account.RawStatus,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

// Create inserts the record unless the identity already has one, so two
// racing activations converge on a single row.
func (r *activationRepository) Create(ctx context.Context, account *domain.ActivationAccount) error {
	const query = `
        INSERT INTO activation_accounts (identity_id, account_id, status, charges_enabled, payouts_enabled, onboarding_url, raw_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (identity_id) DO NOTHING
        RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		account.IdentityID,
		account.AccountID,
		account.Status,
		account.ChargesEnabled,
		account.PayoutsEnabled,
		account.OnboardingURL,
		account.RawStatus,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAccountExists
	}
	return err
}

// Update rewrites the mutable columns with a compare-and-set on the status
// the caller read, so an overlapping reconcile can never overwrite a newer
// status with a stale observation. The account_id is assigned once at
// Create and is deliberately absent from the SET list.
func (r *activationRepository) Update(ctx context.Context, account *domain.ActivationAccount, expected domain.ActivationStatus) error {
	const query = `
        UPDATE activation_accounts SET status=$2, charges_enabled=$3, payouts_enabled=$4,
            onboarding_url=$5, raw_status=$6, updated_at=NOW()
        WHERE account_id=$1 AND status=$7`
	cmd, err := r.pool.Exec(ctx, query,
		account.AccountID,
		account.Status,
		account.ChargesEnabled,
		account.PayoutsEnabled,
		account.OnboardingURL,
		account.RawStatus,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// distinguish missing row from lost race
		if _, getErr := r.GetByAccountID(ctx, account.AccountID); getErr != nil {
			return getErr
		}
		return ErrStaleAccount
	}
	return nil
}

// ListUnresolved returns accounts still awaiting a terminal status, oldest
// update first, for the background sweep.
func (r *activationRepository) ListUnresolved(ctx context.Context, limit int) ([]domain.ActivationAccount, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT ` + activationColumns + `
        FROM activation_accounts
        WHERE status NOT IN ($1, $2)
        ORDER BY updated_at ASC
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.ActivationStatusActive, domain.ActivationStatusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivationAccount
	for rows.Next() {
		var account domain.ActivationAccount
		if err := rows.Scan(
			&account.IdentityID,
			&account.AccountID,
			&account.Status,
			&account.ChargesEnabled,
			&account.PayoutsEnabled,
			&account.OnboardingURL,
			&account.RawStatus,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}
