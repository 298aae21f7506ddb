package events

import (
	"time"

	"github.com/spec-kit/creator-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventInviteRedeemed          EventType = "invite_redeemed"
	EventOnboardingCompleted     EventType = "onboarding_completed"
	EventActivationRequested     EventType = "activation_requested"
	EventActivationStatusChanged EventType = "activation_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IdentityID string      `json:"identity_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// InviteRedeemedPayload payload.
type InviteRedeemedPayload struct {
	InviteID string `json:"invite_id"`
	Email    string `json:"email"`
}

// OnboardingCompletedPayload payload.
type OnboardingCompletedPayload struct {
	SessionID   string `json:"session_id"`
	InviteID    string `json:"invite_id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
}

// ActivationRequestedPayload payload.
type ActivationRequestedPayload struct {
	AccountID string `json:"account_id"`
}

// ActivationStatusChangedPayload payload.
type ActivationStatusChangedPayload struct {
	AccountID string                  `json:"account_id"`
	OldStatus domain.ActivationStatus `json:"old_status"`
	NewStatus domain.ActivationStatus `json:"new_status"`
	RawStatus string                  `json:"raw_status,omitempty"`
}
