package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/creator-service/internal/domain"
	"github.com/spec-kit/creator-service/internal/events"
	"github.com/spec-kit/creator-service/internal/repository"
	apperrors "github.com/spec-kit/creator-service/pkg/util/errorutil"
)

// OnboardingService mediates between a validated invite, the signed-in
// identity, and the multi-step local draft, and performs the single
// finalize transaction.
type OnboardingService struct {
	invites    *InviteService
	profiles   repository.ProfileRepository
	sessions   repository.SessionStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// OnboardingDependencies bundles collaborators for the onboarding service.
type OnboardingDependencies struct {
	Invites     *InviteService
	ProfileRepo repository.ProfileRepository
	Sessions    repository.SessionStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewOnboardingService constructs the service.
func NewOnboardingService(deps OnboardingDependencies) *OnboardingService {
	return &OnboardingService{
		invites:    deps.Invites,
		profiles:   deps.ProfileRepo,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// StepInput carries one step's submitted fields. Nil means "not submitted";
// empty string clears the field.
type StepInput struct {
	DisplayName *string
	Handle      *string
	Bio         *string
	Statement   *string
	Location    *string
	Links       []string
}

// FinalizeOutcome distinguishes a fresh completion from an idempotent one.
type FinalizeOutcome struct {
	Session          *domain.OnboardingSession
	AlreadyCompleted bool
}

// Start opens a session for the invite token. A session whose identity
// email does not match the invite binding is created in the terminal
// MISMATCHED state so the caller can render an actionable message.
func (s *OnboardingService) Start(ctx context.Context, token string, ident domain.Identity) (*domain.OnboardingSession, error) {
	invite, err := s.invites.Load(ctx, token)
	if err != nil {
		return nil, err
	}

	validation := invite.Validate(time.Now())
	if validation != domain.InviteReady {
		// an invite already redeemed by this identity short-circuits to the
		// completed view instead of a conflict error
		if validation == domain.InviteAlreadyRedeemed &&
			invite.RedeemedBy != nil && *invite.RedeemedBy == ident.ID {
			return s.completedSession(ctx, invite, ident)
		}
		return nil, TerminalError(validation)
	}

	now := time.Now()
	session := &domain.OnboardingSession{
		ID:          uuid.NewString(),
		InviteID:    invite.ID,
		InviteEmail: invite.Email,
		IdentityID:  ident.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if !domain.EmailsMatch(invite.Email, ident.Email) {
		session.Status = domain.SessionStatusMismatched
		session.Step = domain.FirstStep()
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.logger.Info("onboarding email mismatch",
			zap.String("invite_id", invite.ID),
			zap.String("identity_id", ident.ID))
		return session, nil
	}

	profile, err := s.profiles.LoadProfile(ctx, ident.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	seed := domain.SeedFromProfile(profile)
	if seed.DisplayName == "" {
		seed.DisplayName = ident.DisplayName
	}
	// first snapshot wins; a later Start never re-seeds over it
	draft, err := s.sessions.SeedDraft(ctx, ident.ID, seed)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	session.Status = domain.SessionStatusReady
	session.Step = domain.FirstStep()
	session.Draft = draft
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// Get returns the session, enforcing ownership.
func (s *OnboardingService) Get(ctx context.Context, sessionID, identityID string) (*domain.OnboardingSession, error) {
	return s.loadOwned(ctx, sessionID, identityID)
}

// Advance applies the submitted fields and moves the cursor forward.
// Validation is purely local; no network calls happen here.
func (s *OnboardingService) Advance(ctx context.Context, sessionID, identityID string, input StepInput) (*domain.OnboardingSession, error) {
	session, err := s.loadOwned(ctx, sessionID, identityID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(session); err != nil {
		return nil, err
	}

	applyInput(&session.Draft, input)

	if session.Step == domain.StepIdentityBasics {
		if strings.TrimSpace(session.Draft.DisplayName) == "" || strings.TrimSpace(session.Draft.Handle) == "" {
			return nil, apperrors.NewValidationError("display name and handle are required", map[string]any{
				"step": session.Step,
			})
		}
	}

	next, ok := domain.NextStep(session.Step)
	if !ok {
		return nil, apperrors.NewValidationError("no further steps; finalize to complete", map[string]any{
			"step": session.Step,
		})
	}
	session.Step = next
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// Retreat moves the cursor back one step. Always legal except at the
// first step.
func (s *OnboardingService) Retreat(ctx context.Context, sessionID, identityID string) (*domain.OnboardingSession, error) {
	session, err := s.loadOwned(ctx, sessionID, identityID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(session); err != nil {
		return nil, err
	}

	prev, ok := domain.PrevStep(session.Step)
	if !ok {
		return nil, apperrors.NewValidationError("already at the first step", nil)
	}
	session.Step = prev
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// Finalize runs the ordered completion transaction: re-validate the
// invite, persist the merged profile, then redeem. A redeem conflict from
// our own identity is an idempotency outcome, not a failure. A profile
// write failure aborts before redemption so the invite stays PENDING and
// the user can retry.
func (s *OnboardingService) Finalize(ctx context.Context, sessionID string, ident domain.Identity) (*FinalizeOutcome, error) {
	session, err := s.loadOwned(ctx, sessionID, ident.ID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusCompleted {
		return &FinalizeOutcome{Session: session, AlreadyCompleted: true}, nil
	}
	if err := s.requireEditable(session); err != nil {
		return nil, err
	}
	if strings.TrimSpace(session.Draft.DisplayName) == "" || strings.TrimSpace(session.Draft.Handle) == "" {
		return nil, apperrors.NewValidationError("display name and handle are required", nil)
	}

	invite, err := s.invites.Reload(ctx, session.InviteID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	switch validation := invite.Validate(now); validation {
	case domain.InviteReady:
	case domain.InviteAlreadyRedeemed:
		if invite.RedeemedBy != nil && *invite.RedeemedBy == ident.ID {
			return s.markCompleted(ctx, session, invite, false)
		}
		return nil, TerminalError(validation)
	default:
		return nil, TerminalError(validation)
	}

	if _, err := s.profiles.MergeProfile(ctx, ident.ID, session.Draft.Fields()); err != nil {
		s.logger.Error("profile merge failed; invite left pending",
			zap.String("session_id", session.ID), zap.Error(err))
		return nil, apperrors.MapError(err)
	}

	err = s.invites.Redeem(ctx, invite.ID, ident.ID, now)
	if err != nil {
		if errors.Is(err, repository.ErrRedeemConflict) {
			latest, reloadErr := s.invites.Reload(ctx, invite.ID)
			if reloadErr != nil {
				return nil, reloadErr
			}
			if latest.RedeemedBy != nil && *latest.RedeemedBy == ident.ID {
				// our own resubmission won first; profile write is idempotent
				return s.markCompleted(ctx, session, latest, false)
			}
			return nil, apperrors.NewInviteAlreadyRedeemed()
		}
		return nil, err
	}

	return s.markCompleted(ctx, session, invite, true)
}

func (s *OnboardingService) markCompleted(ctx context.Context, session *domain.OnboardingSession, invite *domain.Invite, fresh bool) (*FinalizeOutcome, error) {
	session.Status = domain.SessionStatusCompleted
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	if fresh {
		s.publishEvent(ctx, events.Event{
			Type:       events.EventInviteRedeemed,
			IdentityID: session.IdentityID,
			Payload: events.InviteRedeemedPayload{
				InviteID: invite.ID,
				Email:    invite.Email,
			},
		})
		s.publishEvent(ctx, events.Event{
			Type:       events.EventOnboardingCompleted,
			IdentityID: session.IdentityID,
			Payload: events.OnboardingCompletedPayload{
				SessionID:   session.ID,
				InviteID:    invite.ID,
				DisplayName: session.Draft.DisplayName,
				Handle:      session.Draft.Handle,
			},
		})
	}
	return &FinalizeOutcome{Session: session, AlreadyCompleted: !fresh}, nil
}

// completedSession materializes a terminal session for an invite this
// identity already redeemed, so re-entry lands on the completed view.
func (s *OnboardingService) completedSession(ctx context.Context, invite *domain.Invite, ident domain.Identity) (*domain.OnboardingSession, error) {
	now := time.Now()
	session := &domain.OnboardingSession{
		ID:          uuid.NewString(),
		InviteID:    invite.ID,
		InviteEmail: invite.Email,
		IdentityID:  ident.ID,
		Status:      domain.SessionStatusCompleted,
		Step:        domain.StepReview,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if profile, err := s.profiles.LoadProfile(ctx, ident.ID); err == nil && profile != nil {
		session.Draft = domain.SeedFromProfile(profile)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

func (s *OnboardingService) loadOwned(ctx context.Context, sessionID, identityID string) (*domain.OnboardingSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperrors.NewNotFound("onboarding session", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if session.IdentityID != identityID {
		return nil, apperrors.NewNotFound("onboarding session", nil)
	}
	return session, nil
}

func (s *OnboardingService) requireEditable(session *domain.OnboardingSession) error {
	switch session.Status {
	case domain.SessionStatusReady:
		return nil
	case domain.SessionStatusMismatched:
		return apperrors.NewEmailMismatch(session.InviteEmail)
	case domain.SessionStatusCompleted:
		return apperrors.NewOnboardingCompleted()
	default:
		return apperrors.NewValidationError("session is not editable", nil)
	}
}

func (s *OnboardingService) publishEvent(ctx context.Context, event events.Event) {
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

func applyInput(draft *domain.OnboardingDraft, input StepInput) {
	if input.DisplayName != nil {
		draft.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Handle != nil {
		draft.Handle = strings.ToLower(strings.TrimSpace(*input.Handle))
	}
	if input.Bio != nil {
		draft.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Statement != nil {
		draft.Statement = strings.TrimSpace(*input.Statement)
	}
	if input.Location != nil {
		draft.Location = strings.TrimSpace(*input.Location)
	}
	if input.Links != nil {
		draft.Links = input.Links
	}
}
