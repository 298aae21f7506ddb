package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/creator-service/internal/domain"
	"github.com/spec-kit/creator-service/internal/events"
	"github.com/spec-kit/creator-service/internal/observability"
	"github.com/spec-kit/creator-service/internal/oracle"
	"github.com/spec-kit/creator-service/internal/repository"
	apperrors "github.com/spec-kit/creator-service/pkg/util/errorutil"
)

// WatchResult reports how a watch loop ended. TimedOut means polling
// stopped without resolution; the caller should surface "still pending,
// check back later", never a failure.
type WatchResult string

const (
	WatchActive   WatchResult = "ACTIVE"
	WatchFailed   WatchResult = "FAILED"
	WatchTimedOut WatchResult = "TIMED_OUT"
)

// ActivationService creates external payment accounts on request and keeps
// the local record consistent with the processor via bounded polling.
type ActivationService struct {
	accounts   repository.ActivationRepository
	oracle     oracle.ActivationOracle
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ActivationDependencies bundles collaborators for the activation service.
type ActivationDependencies struct {
	AccountRepo repository.ActivationRepository
	Oracle      oracle.ActivationOracle
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewActivationService constructs the service.
func NewActivationService(deps ActivationDependencies) *ActivationService {
	return &ActivationService{
		accounts:   deps.AccountRepo,
		oracle:     deps.Oracle,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Activate requests payment activation for the identity. Repeated calls
// never create a second external account: an existing record is returned
// unchanged, except after FAILED where the same account retries with a
// fresh onboarding link.
func (s *ActivationService) Activate(ctx context.Context, ident domain.Identity) (*domain.ActivationAccount, error) {
	existing, err := s.accounts.GetByIdentity(ctx, ident.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if existing != nil {
		if existing.Status != domain.ActivationStatusFailed {
			return existing, nil
		}
		return s.reopenFailed(ctx, existing)
	}

	created, err := s.oracle.CreateAccount(ctx, ident.ID, ident.Email, ident.DisplayName)
	if err != nil {
		// no local record exists yet, so there is nothing to reconcile later
		s.logger.Error("account creation failed", zap.String("identity_id", ident.ID), zap.Error(err))
		return nil, apperrors.NewActivationFailed("payment account creation failed")
	}

	account := &domain.ActivationAccount{
		IdentityID:    ident.ID,
		AccountID:     created.AccountID,
		Status:        domain.ActivationStatusCreated,
		OnboardingURL: created.OnboardingURL,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			// a concurrent activation won the insert; its record is
			// authoritative and the account we created goes unreferenced
			s.logger.Warn("concurrent activation left an orphaned external account",
				zap.String("identity_id", ident.ID),
				zap.String("orphaned_account_id", created.AccountID))
			existing, getErr := s.accounts.GetByIdentity(ctx, ident.ID)
			if getErr != nil {
				return nil, apperrors.MapError(getErr)
			}
			return existing, nil
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventActivationRequested,
		IdentityID: ident.ID,
		Payload:    events.ActivationRequestedPayload{AccountID: account.AccountID},
	})
	return account, nil
}

// reopenFailed lets a FAILED account retry onboarding. The external
// account_id is reused, never reassigned; the local record restarts the
// lifecycle at CREATED so reconciliation can resume.
func (s *ActivationService) reopenFailed(ctx context.Context, account *domain.ActivationAccount) (*domain.ActivationAccount, error) {
	url, err := s.oracle.OnboardingLink(ctx, account.AccountID)
	if err != nil {
		return nil, apperrors.NewActivationFailed("could not refresh onboarding link")
	}
	account.Status = domain.ActivationStatusCreated
	account.ChargesEnabled = false
	account.PayoutsEnabled = false
	account.RawStatus = ""
	account.OnboardingURL = url
	if err := s.accounts.Update(ctx, account, domain.ActivationStatusFailed); err != nil {
		if errors.Is(err, repository.ErrStaleAccount) {
			// another call reopened it first; return whatever it stored
			current, getErr := s.accounts.GetByAccountID(ctx, account.AccountID)
			if getErr != nil {
				return nil, apperrors.MapError(getErr)
			}
			return current, nil
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("reopened failed activation", zap.String("account_id", account.AccountID))
	return account, nil
}

// Reconcile refreshes the local record from the oracle. ACTIVE requires
// charges and payouts to both be confirmed; the processor's own "complete"
// signal is not enough. Status never moves backward, and an unchanged
// observation writes nothing. The write is a compare-and-set on the status
// read at the top, so an overlapping reconcile (sweep, watch, or forced
// poll) that finished first is never overwritten with a stale observation;
// losing the race re-reads and re-evaluates.
func (s *ActivationService) Reconcile(ctx context.Context, accountID string) (*domain.ActivationAccount, error) {
	for {
		account, err := s.accounts.GetByAccountID(ctx, accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("activation account", nil)
			}
			return nil, apperrors.MapError(err)
		}
		if account.Status == domain.ActivationStatusActive {
			return account, nil
		}

		status, err := s.oracle.GetStatus(ctx, accountID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}

		next := mapOracleStatus(account.Status, status)
		changed := next != account.Status ||
			status.ChargesEnabled != account.ChargesEnabled ||
			status.PayoutsEnabled != account.PayoutsEnabled ||
			status.Raw != account.RawStatus
		if !changed {
			s.metrics.RecordReconcile(string(account.Status))
			return account, nil
		}

		old := account.Status
		account.Status = next
		account.ChargesEnabled = status.ChargesEnabled
		account.PayoutsEnabled = status.PayoutsEnabled
		account.RawStatus = status.Raw
		if err := s.accounts.Update(ctx, account, old); err != nil {
			if errors.Is(err, repository.ErrStaleAccount) {
				continue
			}
			return nil, apperrors.MapError(err)
		}
		s.metrics.RecordReconcile(string(next))

		if old != next {
			s.logger.Info("activation status changed",
				zap.String("account_id", accountID),
				zap.String("old", string(old)),
				zap.String("new", string(next)))
			s.publishEvent(ctx, events.Event{
				Type:       events.EventActivationStatusChanged,
				IdentityID: account.IdentityID,
				Payload: events.ActivationStatusChangedPayload{
					AccountID: accountID,
					OldStatus: old,
					NewStatus: next,
					RawStatus: status.Raw,
				},
			})
		}
		return account, nil
	}
}

// WatchUntilTerminal polls Reconcile on a fixed interval until the account
// reaches a terminal status, the deadline elapses, or ctx is cancelled.
// Transient oracle errors are retried within the deadline, never surfaced
// individually. No lock is held between polls.
func (s *ActivationService) WatchUntilTerminal(ctx context.Context, accountID string, pollInterval, deadline time.Duration) (WatchResult, error) {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	expired := time.After(deadline)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		account, err := s.Reconcile(ctx, accountID)
		if err != nil {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == "NOT_FOUND" {
				return "", err
			}
			s.logger.Warn("reconcile poll failed; will retry",
				zap.String("account_id", accountID), zap.Error(err))
		} else {
			switch account.Status {
			case domain.ActivationStatusActive:
				return WatchActive, nil
			case domain.ActivationStatusFailed:
				return WatchFailed, nil
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-expired:
			s.logger.Info("watch deadline elapsed",
				zap.String("account_id", accountID))
			return WatchTimedOut, nil
		case <-ticker.C:
		}
	}
}

// GetActivationState returns the read model for the identity, an
// UNCONNECTED placeholder when no account exists yet.
func (s *ActivationService) GetActivationState(ctx context.Context, identityID string) (*domain.ActivationAccount, error) {
	account, err := s.accounts.GetByIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.ActivationAccount{
				IdentityID: identityID,
				Status:     domain.ActivationStatusUnconnected,
			}, nil
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// ListUnresolved exposes non-terminal accounts for the background sweep.
func (s *ActivationService) ListUnresolved(ctx context.Context, limit int) ([]domain.ActivationAccount, error) {
	accounts, err := s.accounts.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return accounts, nil
}

// mapOracleStatus folds an oracle observation into the local enum while
// keeping the status monotonic.
func mapOracleStatus(current domain.ActivationStatus, status *oracle.AccountStatus) domain.ActivationStatus {
	var next domain.ActivationStatus
	switch {
	case status.ChargesEnabled && status.PayoutsEnabled:
		next = domain.ActivationStatusActive
	case status.Failed:
		next = domain.ActivationStatusFailed
	case status.Raw == "pending_verification":
		next = domain.ActivationStatusPending
	default:
		next = domain.ActivationStatusIncomplete
	}
	if !current.CanTransition(next) {
		return current
	}
	return next
}

func (s *ActivationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
