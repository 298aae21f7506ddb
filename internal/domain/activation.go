package domain

import "time"

// ActivationStatus enumerates payment-account lifecycle states.
type ActivationStatus string

const (
	ActivationStatusUnconnected ActivationStatus = "UNCONNECTED"
	ActivationStatusCreated     ActivationStatus = "CREATED"
	ActivationStatusIncomplete  ActivationStatus = "INCOMPLETE"
	ActivationStatusPending     ActivationStatus = "PENDING"
	ActivationStatusActive      ActivationStatus = "ACTIVE"
	ActivationStatusFailed      ActivationStatus = "FAILED"
)

// statusRank orders statuses along the activation pipeline. INCOMPLETE and
// PENDING share a rank; the processor can report either while onboarding is
// underway and moving between them is not a regression.
var statusRank = map[ActivationStatus]int{
	ActivationStatusUnconnected: 0,
	ActivationStatusCreated:     1,
	ActivationStatusIncomplete:  2,
	ActivationStatusPending:     2,
	ActivationStatusActive:      3,
	ActivationStatusFailed:      3,
}

// IsTerminal reports whether the status ends the watch loop.
func (s ActivationStatus) IsTerminal() bool {
	return s == ActivationStatusActive || s == ActivationStatusFailed
}

// CanTransition reports whether moving from current to next keeps the
// status monotonic. Terminal states accept no successor.
func (s ActivationStatus) CanTransition(next ActivationStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return statusRank[next] >= statusRank[s]
}

// ActivationAccount binds one identity to one external payment account.
// The record is never deleted; FAILED accounts stay for audit.
type ActivationAccount struct {
	IdentityID     string
	AccountID      string
	Status         ActivationStatus
	ChargesEnabled bool
	PayoutsEnabled bool
	OnboardingURL  string
	RawStatus      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
