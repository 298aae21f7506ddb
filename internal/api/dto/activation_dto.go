package dto

import (
	"time"

	"github.com/spec-kit/creator-service/internal/domain"
)

// ActivationResponse is the payment-activation read model.
type ActivationResponse struct {
	AccountID      string                  `json:"account_id,omitempty"`
	Status         domain.ActivationStatus `json:"status"`
	ChargesEnabled bool                    `json:"charges_enabled"`
	PayoutsEnabled bool                    `json:"payouts_enabled"`
	OnboardingURL  string                  `json:"onboarding_url,omitempty"`
	UpdatedAt      *time.Time              `json:"updated_at,omitempty"`
}

// NewActivationResponse maps an account record to its response shape.
func NewActivationResponse(account *domain.ActivationAccount) ActivationResponse {
	resp := ActivationResponse{
		AccountID:      account.AccountID,
		Status:         account.Status,
		ChargesEnabled: account.ChargesEnabled,
		PayoutsEnabled: account.PayoutsEnabled,
		OnboardingURL:  account.OnboardingURL,
	}
	if !account.UpdatedAt.IsZero() {
		updatedAt := account.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
