package oracle

import "context"

// CreatedAccount is the external processor's response to account creation.
type CreatedAccount struct {
	AccountID     string
	OnboardingURL string
}

// AccountStatus is the observable status contract of the processor.
// Charges and payouts are confirmed independently; a "complete" flag from
// the processor alone never implies either.
type AccountStatus struct {
	ChargesEnabled bool
	PayoutsEnabled bool
	Raw            string
	Failed         bool
}

// ActivationOracle is the external payment processor as seen by the
// reconciler. Calls may be slow or fail transiently.
type ActivationOracle interface {
	CreateAccount(ctx context.Context, identityID, email, displayName string) (*CreatedAccount, error)
	OnboardingLink(ctx context.Context, accountID string) (string, error)
	GetStatus(ctx context.Context, accountID string) (*AccountStatus, error)
}
