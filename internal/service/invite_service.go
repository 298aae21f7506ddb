package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/creator-service/internal/domain"
	"github.com/spec-kit/creator-service/internal/repository"
	apperrors "github.com/spec-kit/creator-service/pkg/util/errorutil"
)

// InviteService is the single source of truth for invite validity and the
// at-most-once redemption guarantee. Nothing else writes invite fields.
type InviteService struct {
	invites repository.InviteRepository
	logger  *zap.Logger
}

// NewInviteService constructs the service.
func NewInviteService(invites repository.InviteRepository, logger *zap.Logger) *InviteService {
	return &InviteService{invites: invites, logger: logger}
}

// InviteState is the read model for the invite landing page.
type InviteState struct {
	ID         string                  `json:"id"`
	Email      string                  `json:"email"`
	Status     domain.InviteStatus     `json:"status"`
	Validation domain.InviteValidation `json:"validation"`
	IssuedAt   time.Time               `json:"issued_at"`
	ExpiresAt  *time.Time              `json:"expires_at,omitempty"`
}

// Load fetches an invite by token and touches its access timestamp.
// The touch is fire-and-forget; losing it costs nothing.
func (s *InviteService) Load(ctx context.Context, token string) (*domain.Invite, error) {
	invite, err := s.invites.GetByID(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("invite", nil)
		}
		return nil, apperrors.MapError(err)
	}

	go func() {
		touchCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.invites.Touch(touchCtx, invite.ID, time.Now()); err != nil {
			s.logger.Debug("invite touch failed", zap.String("invite_id", invite.ID), zap.Error(err))
		}
	}()

	return invite, nil
}

// Validate classifies the invite at the given instant without writing.
func (s *InviteService) Validate(invite *domain.Invite, now time.Time) domain.InviteValidation {
	return invite.Validate(now)
}

// Redeem performs the conditional terminal write. Returns
// repository.ErrRedeemConflict when another call won the race; callers
// decide whether that is their own resubmission.
func (s *InviteService) Redeem(ctx context.Context, inviteID, identityID string, now time.Time) error {
	err := s.invites.Redeem(ctx, inviteID, identityID, now)
	switch {
	case err == nil:
		s.logger.Info("invite redeemed",
			zap.String("invite_id", inviteID),
			zap.String("identity_id", identityID))
		return nil
	case errors.Is(err, repository.ErrRedeemConflict):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("invite", nil)
	default:
		return apperrors.MapError(err)
	}
}

// Reload re-reads an invite after a redeem conflict.
func (s *InviteService) Reload(ctx context.Context, inviteID string) (*domain.Invite, error) {
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("invite", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return invite, nil
}

// GetInviteState returns the UI read model for a token.
func (s *InviteService) GetInviteState(ctx context.Context, token string) (*InviteState, error) {
	invite, err := s.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	return &InviteState{
		ID:         invite.ID,
		Email:      invite.Email,
		Status:     invite.Status,
		Validation: invite.Validate(time.Now()),
		IssuedAt:   invite.IssuedAt,
		ExpiresAt:  invite.ExpiresAt,
	}, nil
}

// TerminalError maps a non-ready validation to its user-facing error.
func TerminalError(validation domain.InviteValidation) error {
	switch validation {
	case domain.InviteRevoked:
		return apperrors.NewInviteRevoked()
	case domain.InviteExpired:
		return apperrors.NewInviteExpired()
	case domain.InviteAlreadyRedeemed:
		return apperrors.NewInviteAlreadyRedeemed()
	default:
		return nil
	}
}
