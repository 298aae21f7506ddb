package dto

import (
	"time"

	"github.com/spec-kit/creator-service/internal/domain"
	"github.com/spec-kit/creator-service/internal/service"
)

// StartSessionRequest opens an onboarding session from an invite token.
type StartSessionRequest struct {
	InviteToken string `json:"invite_token"`
}

// AdvanceRequest carries the current step's submitted fields. Omitted
// fields stay untouched.
type AdvanceRequest struct {
	DisplayName *string  `json:"display_name,omitempty"`
	Handle      *string  `json:"handle,omitempty"`
	Bio         *string  `json:"bio,omitempty"`
	Statement   *string  `json:"statement,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Links       []string `json:"links,omitempty"`
}

// Input converts the request to the service input.
func (r AdvanceRequest) Input() service.StepInput {
	return service.StepInput{
		DisplayName: r.DisplayName,
		Handle:      r.Handle,
		Bio:         r.Bio,
		Statement:   r.Statement,
		Location:    r.Location,
		Links:       r.Links,
	}
}

// SessionResponse is the session read model returned to the UI.
type SessionResponse struct {
	ID        string                 `json:"id"`
	Status    domain.SessionStatus   `json:"status"`
	Step      domain.OnboardingStep  `json:"step"`
	Draft     domain.OnboardingDraft `json:"draft"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewSessionResponse maps a session to its response shape.
func NewSessionResponse(session *domain.OnboardingSession) SessionResponse {
	return SessionResponse{
		ID:        session.ID,
		Status:    session.Status,
		Step:      session.Step,
		Draft:     session.Draft,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}
